package cmm

import (
	"math"
	"testing"

	"go.colorist.dev/colorist/internal/iccprofile"
)

func TestInvertMatrix3x3(t *testing.T) {
	identity := []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	inv := invertMatrix3x3(identity)
	for i := range identity {
		if math.Abs(inv[i]-identity[i]) > 1e-10 {
			t.Errorf("inverse of identity differs at %d: %f vs %f", i, inv[i], identity[i])
		}
	}

	srgbToXYZ := []float64{
		0.4124564, 0.3575761, 0.1804375,
		0.2126729, 0.7151522, 0.0721750,
		0.0193339, 0.1191920, 0.9503041,
	}
	inv = invertMatrix3x3(srgbToXYZ)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += srgbToXYZ[i*3+k] * inv[k*3+j]
			}
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			if math.Abs(sum-expected) > 1e-6 {
				t.Errorf("matrix * inverse[%d][%d] = %f, want %f", i, j, sum, expected)
			}
		}
	}

	singular := []float64{
		1, 2, 3,
		2, 4, 6,
		1, 1, 1,
	}
	if invertMatrix3x3(singular) != nil {
		t.Error("expected nil inverse for singular matrix")
	}
}

func TestEngineMatrixTRCRoundTrip(t *testing.T) {
	p := iccprofile.NewMatrixTRCProfile(bt709ToXYZ, 2.2, 0, "test RGB")

	toPCS, err := newEngine(p, deviceToPCS)
	if err != nil {
		t.Fatalf("newEngine deviceToPCS: %v", err)
	}
	toDevice, err := newEngine(p, pcsToDevice)
	if err != nil {
		t.Fatalf("newEngine pcsToDevice: %v", err)
	}

	for _, rgb := range [][]float64{
		{0, 0, 0},
		{1, 1, 1},
		{0.5, 0.25, 0.75},
		{1, 0, 0},
	} {
		xyz := toPCS.apply(rgb)
		back := toDevice.apply(xyz)
		for i := range rgb {
			if math.Abs(back[i]-rgb[i]) > 1e-3 {
				t.Errorf("round-trip %v -> %v -> %v, channel %d off", rgb, xyz, back, i)
			}
		}
	}
}

func TestEngineRejectsLUTProfiles(t *testing.T) {
	p := iccprofile.NewMatrixTRCProfile(bt709ToXYZ, 2.2, 0, "test RGB")
	p.TagData[iccprofile.AToB0] = []byte("mft1")
	if _, err := newEngine(p, deviceToPCS); err == nil {
		t.Fatal("expected an error for a LUT-based profile")
	}
	if _, err := newEngine(p, pcsToDevice); err == nil {
		t.Fatal("expected an error for a LUT-based profile")
	}
}

func TestEngineWhitePointTagReadable(t *testing.T) {
	// NewMatrixTRCProfile always records the media white point as D50, the
	// ICC PCS reference illuminant, regardless of the matrix's own adapted
	// white. The tag is s15Fixed16, so it matches D50 to one 1/65536 step.
	p := iccprofile.NewMatrixTRCProfile(bt709ToXYZ, 2.2, 0, "test RGB")
	wp := p.WhitePointXYZ()
	for i := range wp {
		if math.Abs(wp[i]-iccprofile.D50WhitePoint[i]) > 1.0/65536 {
			t.Errorf("WhitePointXYZ() = %v, want D50 %v", wp, iccprofile.D50WhitePoint)
		}
	}
}

var bt709ToXYZ = [9]float64{
	0.4124564, 0.3575761, 0.1804375,
	0.2126729, 0.7151522, 0.0721750,
	0.0193339, 0.1191920, 0.9503041,
}
