package cmm

import (
	"errors"

	"go.colorist.dev/colorist/internal/iccprofile"
)

// direction of a colour transformation through a decoded ICC profile.
type direction int

const (
	deviceToPCS direction = iota
	pcsToDevice
)

// engine performs colour conversions using a decoded ICC profile. It
// supports the matrix/TRC (common for displays) and gray/TRC profile
// shapes — the structures the colorist core's built-in engine cannot
// model in closed form because their curves are arbitrary. Inputs and
// outputs are PCS XYZ, never Lab, matching the external CMM contract in
// the core's spec (it only produces/consumes RGB or XYZ floats).
//
// Printer-class LUT pipelines (mft1/mft2/mAB/mBA tags) are rejected at
// construction: nothing in this repository produces or consumes them,
// and the conversion pipeline only bridges display profiles.
//
// After construction an engine is read-only and safe for concurrent
// apply calls, matching the dispatcher's requirement that kernels be
// reentrant.
type engine struct {
	profile   *iccprofile.Profile
	direction direction

	kind profileKind

	matrix    []float64 // device RGB -> XYZ (row major 3x3)
	matrixInv []float64 // XYZ -> device RGB
	trc       [3]*curve
	trcInv    [3]*curve

	grayTRC    *curve
	grayTRCInv *curve

	whitePoint [3]float64
}

type profileKind int

const (
	kindUnknown profileKind = iota
	kindMatrixTRC
	kindGrayTRC
	kindLut
)

func newEngine(p *iccprofile.Profile, dir direction) (*engine, error) {
	e := &engine{profile: p, direction: dir}
	e.kind = detectProfileKind(p)

	switch e.kind {
	case kindMatrixTRC:
		if err := e.initMatrixTRC(); err != nil {
			return nil, err
		}
	case kindGrayTRC:
		if err := e.initGrayTRC(); err != nil {
			return nil, err
		}
	case kindLut:
		return nil, errors.New("cmm: LUT-based profiles are not supported")
	default:
		return nil, errors.New("cmm: unsupported profile structure")
	}

	// Build sampled-curve inverses now, so apply never writes to the
	// curves and stays safe for concurrent use.
	if dir == pcsToDevice {
		for _, c := range []*curve{e.trcInv[0], e.trcInv[1], e.trcInv[2], e.grayTRCInv} {
			if c != nil && c.Table != nil && c.inverseTable == nil {
				c.buildInverseTable()
			}
		}
	}

	e.whitePoint = p.WhitePointXYZ()
	return e, nil
}

func detectProfileKind(p *iccprofile.Profile) profileKind {
	for _, t := range []iccprofile.TagType{iccprofile.AToB0, iccprofile.AToB1, iccprofile.AToB2, iccprofile.BToA0, iccprofile.BToA1, iccprofile.BToA2} {
		if _, ok := p.TagData[t]; ok {
			return kindLut
		}
	}

	_, hasRXYZ := p.TagData[iccprofile.RedMatrixColumn]
	_, hasGXYZ := p.TagData[iccprofile.GreenMatrixColumn]
	_, hasBXYZ := p.TagData[iccprofile.BlueMatrixColumn]
	_, hasRTRC := p.TagData[iccprofile.RedTRC]
	_, hasGTRC := p.TagData[iccprofile.GreenTRC]
	_, hasBTRC := p.TagData[iccprofile.BlueTRC]
	if hasRXYZ && hasGXYZ && hasBXYZ && hasRTRC && hasGTRC && hasBTRC {
		return kindMatrixTRC
	}

	if _, ok := p.TagData[iccprofile.GrayTRC]; ok {
		return kindGrayTRC
	}

	return kindUnknown
}

func (e *engine) initMatrixTRC() error {
	p := e.profile

	rXYZ, err := parseXYZ(p.TagData[iccprofile.RedMatrixColumn])
	if err != nil {
		return err
	}
	gXYZ, err := parseXYZ(p.TagData[iccprofile.GreenMatrixColumn])
	if err != nil {
		return err
	}
	bXYZ, err := parseXYZ(p.TagData[iccprofile.BlueMatrixColumn])
	if err != nil {
		return err
	}

	e.matrix = []float64{
		rXYZ[0], gXYZ[0], bXYZ[0],
		rXYZ[1], gXYZ[1], bXYZ[1],
		rXYZ[2], gXYZ[2], bXYZ[2],
	}

	if e.direction == pcsToDevice {
		e.matrixInv = invertMatrix3x3(e.matrix)
		if e.matrixInv == nil {
			return errors.New("cmm: singular colour matrix")
		}
	}

	rTRC, err := decodeCurve(p.TagData[iccprofile.RedTRC])
	if err != nil {
		return err
	}
	gTRC, err := decodeCurve(p.TagData[iccprofile.GreenTRC])
	if err != nil {
		return err
	}
	bTRC, err := decodeCurve(p.TagData[iccprofile.BlueTRC])
	if err != nil {
		return err
	}

	e.trc = [3]*curve{rTRC, gTRC, bTRC}
	e.trcInv = e.trc
	return nil
}

func (e *engine) initGrayTRC() error {
	grayTRC, err := decodeCurve(e.profile.TagData[iccprofile.GrayTRC])
	if err != nil {
		return err
	}
	e.grayTRC = grayTRC
	e.grayTRCInv = grayTRC
	return nil
}

func parseXYZ(data []byte) ([3]float64, error) {
	if len(data) < 20 {
		return [3]float64{}, iccprofile.ErrInvalidTagData
	}
	if string(data[0:4]) != "XYZ " {
		return [3]float64{}, iccprofile.ErrUnexpectedType
	}
	return [3]float64{
		getS15Fixed16(data, 8),
		getS15Fixed16(data, 12),
		getS15Fixed16(data, 16),
	}, nil
}

// apply transforms one colour. For deviceToPCS, input is device colour and
// output is PCS XYZ; for pcsToDevice, input is PCS XYZ and output is device
// colour.
func (e *engine) apply(input []float64) []float64 {
	switch e.kind {
	case kindMatrixTRC:
		return e.applyMatrixTRC(input)
	case kindGrayTRC:
		return e.applyGrayTRC(input)
	}
	return input
}

func (e *engine) applyMatrixTRC(input []float64) []float64 {
	if len(input) != 3 {
		return make([]float64, 3)
	}

	if e.direction == deviceToPCS {
		r := e.trc[0].Evaluate(input[0])
		g := e.trc[1].Evaluate(input[1])
		b := e.trc[2].Evaluate(input[2])
		m := e.matrix
		return []float64{
			m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b,
		}
	}

	x, y, z := input[0], input[1], input[2]
	mi := e.matrixInv
	r := clamp(mi[0]*x+mi[1]*y+mi[2]*z, 0, 1)
	g := clamp(mi[3]*x+mi[4]*y+mi[5]*z, 0, 1)
	b := clamp(mi[6]*x+mi[7]*y+mi[8]*z, 0, 1)
	return []float64{
		e.trcInv[0].Invert(r),
		e.trcInv[1].Invert(g),
		e.trcInv[2].Invert(b),
	}
}

func (e *engine) applyGrayTRC(input []float64) []float64 {
	if len(input) < 1 {
		return make([]float64, 1)
	}
	if e.direction == deviceToPCS {
		y := e.grayTRC.Evaluate(input[0])
		return []float64{e.whitePoint[0] * y, e.whitePoint[1] * y, e.whitePoint[2] * y}
	}
	y := input[0]
	if len(input) >= 2 {
		y = input[1]
	}
	if e.whitePoint[1] != 0 {
		y /= e.whitePoint[1]
	}
	return []float64{e.grayTRCInv.Invert(clamp(y, 0, 1))}
}

// invertMatrix3x3 returns the inverse of a row-major 3x3 matrix, or nil if
// singular.
func invertMatrix3x3(m []float64) []float64 {
	if len(m) != 9 {
		return nil
	}
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det == 0 {
		return nil
	}
	invDet := 1.0 / det
	return []float64{
		(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet,
		(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet,
		(d*h - e*g) * invDet, (b*g - a*h) * invDet, (a*e - b*d) * invDet,
	}
}
