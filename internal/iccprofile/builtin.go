package iccprofile

import "time"

// Synthesized built-in profiles.
//
// The teacher library embedded real third-party ICC binaries via go:embed
// (github.com/saucecontrol/Compact-ICC-Profiles). No binary ICC assets were
// retrieved for this project, so instead of embedding files this package
// synthesizes equivalent matrix/TRC profiles at runtime from their known
// chromaticities and gamma, through the same tag encoding [Profile.Encode]
// uses for any other profile.

// BT709Primaries are the ITU-R BT.709 (sRGB) chromaticity primaries in
// (rx,ry,gx,gy,bx,by,wx,wy) order, D65 white.
var BT709Primaries = [8]float64{0.64, 0.33, 0.30, 0.60, 0.15, 0.06, 0.3127, 0.3290}

// DCIP3Primaries are the Display P3 chromaticity primaries, D65 white.
var DCIP3Primaries = [8]float64{0.680, 0.320, 0.265, 0.690, 0.150, 0.060, 0.3127, 0.3290}

// BT2020Primaries are the ITU-R BT.2020 chromaticity primaries, D65 white.
var BT2020Primaries = [8]float64{0.708, 0.292, 0.170, 0.797, 0.131, 0.046, 0.3127, 0.3290}

// NewMatrixTRCProfile synthesizes a matrix/TRC ICC profile from a colour
// matrix, a simple power-law gamma, and an optional luminance in cd/m^2
// (0 = omit the luminance tag). rgbToXYZ must be the row-major 3x3
// "device RGB to PCS XYZ" matrix, already derived from the primaries and
// white point (see the core's primaries.go); this package only packages
// bytes, it does not derive colour matrices.
func NewMatrixTRCProfile(rgbToXYZ [9]float64, gamma float64, luminanceNits float64, description string) *Profile {
	p := &Profile{
		Version:         CurrentVersion,
		Class:           DisplayDeviceProfile,
		ColorSpace:      RGBSpace,
		PCS:             PCSXYZSpace,
		CreationDate:    time.Unix(0, 0).UTC(),
		RenderingIntent: RelativeColorimetric,
		TagData:         make(map[TagType][]byte),
	}

	p.TagData[RedMatrixColumn] = encodeXYZTag([3]float64{rgbToXYZ[0], rgbToXYZ[3], rgbToXYZ[6]})
	p.TagData[GreenMatrixColumn] = encodeXYZTag([3]float64{rgbToXYZ[1], rgbToXYZ[4], rgbToXYZ[7]})
	p.TagData[BlueMatrixColumn] = encodeXYZTag([3]float64{rgbToXYZ[2], rgbToXYZ[5], rgbToXYZ[8]})

	trc := encodeGammaCurve(gamma)
	p.TagData[RedTRC] = trc
	p.TagData[GreenTRC] = trc
	p.TagData[BlueTRC] = trc

	p.TagData[MediaWhitePoint] = encodeXYZTag(D50WhitePoint)
	if luminanceNits > 0 {
		p.TagData[Luminance] = encodeXYZTag([3]float64{0, luminanceNits, 0})
	}
	if description != "" {
		p.TagData[ProfileDescription] = encodeMLUC("en", "US", description)
	}
	return p
}

// NewXYZProfile synthesizes the sentinel PCS XYZ colour-space profile
// used as the endpoint of the external CMM's XYZ bridge transforms.
func NewXYZProfile() *Profile {
	return &Profile{
		Version:      CurrentVersion,
		Class:        ColorSpaceProfile,
		ColorSpace:   CIEXYZSpace,
		PCS:          PCSXYZSpace,
		CreationDate: time.Unix(0, 0).UTC(),
		TagData: map[TagType][]byte{
			MediaWhitePoint: encodeXYZTag(D50WhitePoint),
		},
	}
}

// NewSRGBProfile synthesizes the sRGB display profile: BT.709 matrix
// columns plus the piecewise parametric sRGB TRC (IEC 61966-2-1), which
// is not a simple power gamma.
func NewSRGBProfile(rgbToXYZ [9]float64, luminanceNits float64) *Profile {
	p := NewMatrixTRCProfile(rgbToXYZ, 1.0, luminanceNits, "sRGB")
	trc := encodeParametricCurve(3, []float64{2.4, 1 / 1.055, 0.055 / 1.055, 1 / 12.92, 0.04045})
	p.TagData[RedTRC] = trc
	p.TagData[GreenTRC] = trc
	p.TagData[BlueTRC] = trc
	return p
}

// encodeParametricCurve encodes a parametricCurveType ("para") tag.
func encodeParametricCurve(funcType int, params []float64) []byte {
	buf := make([]byte, 12+4*len(params))
	copy(buf[0:4], "para")
	putUint16(buf, 8, uint16(funcType))
	for i, v := range params {
		putS15Fixed16(buf, 12+i*4, v)
	}
	return buf
}

// XYZTag parses an XYZ-typed tag, reporting false when it is absent or
// malformed.
func (p *Profile) XYZTag(tag TagType) ([3]float64, bool) {
	data, ok := p.TagData[tag]
	if !ok {
		return [3]float64{}, false
	}
	xyz, err := parseXYZTag(data)
	if err != nil {
		return [3]float64{}, false
	}
	return xyz, true
}

// SimpleGamma reports the power gamma of a curveType tag holding either
// an identity curve (gamma 1.0) or a single u8Fixed8 exponent. Sampled
// tables and parametric curves report false.
func SimpleGamma(data []byte) (float64, bool) {
	if len(data) < 12 || string(data[0:4]) != "curv" {
		return 0, false
	}
	n := getUint32(data, 8)
	if n == 0 {
		return 1.0, true
	}
	if n == 1 && len(data) >= 14 {
		return float64(getUint16(data, 12)) / 256.0, true
	}
	return 0, false
}

// encodeGammaCurve encodes a simple curveType tag (n=1, u8Fixed8Number) for
// the given gamma, or an identity curve (n=0) for gamma == 1.
func encodeGammaCurve(gamma float64) []byte {
	if gamma == 1.0 {
		buf := make([]byte, 12)
		copy(buf[0:4], "curv")
		return buf
	}
	buf := make([]byte, 14)
	copy(buf[0:4], "curv")
	putUint32(buf, 8, 1)
	putUint16(buf, 12, uint16(gamma*256.0))
	return buf
}
