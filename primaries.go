package colorist

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// primariesEpsilon is the tolerance used to decide that two chromaticity
// coordinates are "the same" colour, per spec.md §3/§4.2.
const primariesEpsilon = 1e-4

// ChromaticityPrimaries holds the red/green/blue/white chromaticity
// coordinates of a colour space, in CIE 1931 xy.
type ChromaticityPrimaries struct {
	RX, RY float64
	GX, GY float64
	BX, BY float64
	WX, WY float64
}

// DefaultWhite is the D65 white point used when no profile supplies one.
var DefaultWhite = [2]float64{0.3127, 0.3290}

// primariesMatch reports whether two primary sets are within
// primariesEpsilon of each other, coordinate by coordinate.
func primariesMatch(a, b ChromaticityPrimaries) bool {
	close := func(x, y float64) bool { return math.Abs(x-y) <= primariesEpsilon }
	return close(a.RX, b.RX) && close(a.RY, b.RY) &&
		close(a.GX, b.GX) && close(a.GY, b.GY) &&
		close(a.BX, b.BX) && close(a.BY, b.BY) &&
		close(a.WX, b.WX) && close(a.WY, b.WY)
}

// rgbToXYZ derives the row-major 3x3 "RGB to XYZ" matrix from a set of
// chromaticity primaries, following the standard primaries→XYZ
// construction: invert the primaries matrix, solve for the white point's
// channel weights, and scale the primaries columns by them.
func rgbToXYZ(p ChromaticityPrimaries) [9]float64 {
	px := []float64{
		p.RX, p.GX, p.BX,
		p.RY, p.GY, p.BY,
		1 - p.RX - p.RY, 1 - p.GX - p.GY, 1 - p.BX - p.BY,
	}
	P := mat.NewDense(3, 3, px)

	var Pinv mat.Dense
	if err := Pinv.Inverse(P); err != nil {
		// A degenerate (collinear) set of primaries; fall back to
		// identity rather than propagating a matrix singularity into
		// callers that do not expect an error here.
		return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}

	w := mat.NewVecDense(3, []float64{p.WX, p.WY, 1 - p.WX - p.WY})
	var u mat.VecDense
	u.MulVec(&Pinv, w)

	d := mat.NewDense(3, 3, []float64{
		u.AtVec(0) / p.WY, 0, 0,
		0, u.AtVec(1) / p.WY, 0,
		0, 0, u.AtVec(2) / p.WY,
	})

	var m mat.Dense
	m.Mul(P, d)

	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = m.At(i, j)
		}
	}
	return out
}

// invertMatrix3x3 returns the inverse of a row-major 3x3 matrix, or nil if
// it is singular.
func invertMatrix3x3(m [9]float64) *[9]float64 {
	a := mat.NewDense(3, 3, m[:])
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil
	}
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = inv.At(i, j)
		}
	}
	return &out
}

func mulMatVec3(m [9]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// alignPrimaries forces dst to equal src when the two match within
// primariesEpsilon, so that the resulting src→XYZ and XYZ→dst matrices
// are exact inverses of one another.
func alignPrimaries(src, dst ChromaticityPrimaries) (ChromaticityPrimaries, ChromaticityPrimaries) {
	if primariesMatch(src, dst) {
		return src, src
	}
	return src, dst
}

// BT709Primaries are the ITU-R BT.709 (sRGB) chromaticities, D65 white.
var BT709Primaries = ChromaticityPrimaries{
	RX: 0.64, RY: 0.33,
	GX: 0.30, GY: 0.60,
	BX: 0.15, BY: 0.06,
	WX: 0.3127, WY: 0.3290,
}

// DCIP3Primaries are the Display P3 chromaticities, D65 white.
var DCIP3Primaries = ChromaticityPrimaries{
	RX: 0.680, RY: 0.320,
	GX: 0.265, GY: 0.690,
	BX: 0.150, BY: 0.060,
	WX: 0.3127, WY: 0.3290,
}

// BT2020Primaries are the ITU-R BT.2020 chromaticities, D65 white.
var BT2020Primaries = ChromaticityPrimaries{
	RX: 0.708, RY: 0.292,
	GX: 0.170, GY: 0.797,
	BX: 0.131, BY: 0.046,
	WX: 0.3127, WY: 0.3290,
}
