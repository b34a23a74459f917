package colorist

import (
	"errors"
	"math"
	"testing"
)

// identityHald builds the identity Hald CLUT image for cube side n: an
// n^3 x n^3 float image whose entry at grid point (r, g, b) is simply
// the normalized coordinate.
func identityHald(n int) *Image {
	dim := n * n
	img := NewImage(n*n*n, n*n*n, FormatRGBA, Depth32, Profile{})
	span := float64(dim - 1)
	i := 0
	for b := 0; b < dim; b++ {
		for g := 0; g < dim; g++ {
			for r := 0; r < dim; r++ {
				img.Pixels[i] = float64(r) / span
				img.Pixels[i+1] = float64(g) / span
				img.Pixels[i+2] = float64(b) / span
				img.Pixels[i+3] = 1
				i += 4
			}
		}
	}
	return img
}

func TestHaldRejectsNonCubic(t *testing.T) {
	// 257 is square but not a perfect cube.
	img := NewImage(257, 257, FormatRGBA, Depth8, Profile{})
	_, err := NewHaldCLUT(img)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != InvalidHald {
		t.Fatalf("err = %v, want InvalidHald", err)
	}

	rect := NewImage(64, 32, FormatRGBA, Depth8, Profile{})
	_, err = NewHaldCLUT(rect)
	if !errors.As(err, &cerr) || cerr.Kind != InvalidHald {
		t.Fatalf("err = %v, want InvalidHald for non-square", err)
	}
}

func TestHaldDims(t *testing.T) {
	for _, n := range []int{2, 3, 4, 8} {
		h, err := NewHaldCLUT(identityHald(n))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if h.Dim() != n*n {
			t.Errorf("n=%d: dim = %d, want %d", n, h.Dim(), n*n)
		}
	}
}

func TestHaldIdentityLookup(t *testing.T) {
	for _, n := range []int{2, 4} {
		h, err := NewHaldCLUT(identityHald(n))
		if err != nil {
			t.Fatal(err)
		}

		inputs := [][4]float64{
			{0, 0, 0, 1},
			{1, 1, 1, 1},
			{0.5, 0.25, 0.75, 0.5},
			{0.123, 0.456, 0.789, 1},
		}
		for _, in := range inputs {
			out := make([]float64, 4)
			h.Lookup(out, in[:])
			for c := 0; c < 3; c++ {
				if math.Abs(out[c]-in[c]) > 1e-5 {
					t.Errorf("n=%d: identity lookup of %v = %v", n, in, out)
					break
				}
			}
			if out[3] != in[3] {
				t.Errorf("n=%d: alpha %g not copied through, got %g", n, in[3], out[3])
			}
		}
	}
}

func TestHaldClampsOutOfRange(t *testing.T) {
	h, err := NewHaldCLUT(identityHald(2))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float64, 4)
	h.Lookup(out, []float64{-0.5, 2.0, 0.5, 1})
	if out[0] != 0 || out[1] != 1 {
		t.Errorf("clamped lookup = %v, want channel 0 -> 0 and channel 1 -> 1", out)
	}
}
