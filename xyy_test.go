package colorist

import (
	"math"
	"testing"
)

func TestXyYRoundTrip(t *testing.T) {
	inputs := [][3]float64{
		{0.9505, 1.0, 1.089},
		{0.4124, 0.2126, 0.0193},
		{0.1805, 0.0722, 0.9505},
		{0.25, 0.5, 0.25},
	}
	for _, xyz := range inputs {
		x, y, Y := xyzToXyY(xyz, DefaultWhite[0], DefaultWhite[1])
		back := xyYToXYZ(x, y, Y)
		for c := range xyz {
			if math.Abs(back[c]-xyz[c]) > 1e-12 {
				t.Errorf("xyY round trip of %v: got %v", xyz, back)
				break
			}
		}
	}
}

func TestXyYBlackFallsBackToWhitePoint(t *testing.T) {
	x, y, Y := xyzToXyY([3]float64{0, 0, 0}, 0.3127, 0.3290)
	if x != 0.3127 || y != 0.3290 || Y != 0 {
		t.Errorf("black decomposed to (%g, %g, %g)", x, y, Y)
	}
	if got := xyYToXYZ(x, y, Y); got != [3]float64{0, 0, 0} {
		t.Errorf("zero-luminance recomposition = %v, want black", got)
	}
}
