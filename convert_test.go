package colorist

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.colorist.dev/colorist/internal/iccprofile"
)

func writeProfileFile(t *testing.T, icc *iccprofile.Profile) string {
	t.Helper()
	data, err := icc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return writeProfileBytes(t, data)
}

func writeProfileBytes(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.icc")
	if err := os.WriteFile(path, data, 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

// Converting to the same profile at the same depth must return the pixel
// untouched.
func TestConvertRoundTripSameProfile(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(1, 1, FormatRGBA, Depth8, profile)
	copy(src.Pixels, []float64{255, 128, 0, 255})

	dst, err := Convert(ctx, src, NewConversionParams())
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{255, 128, 0, 255}
	for c := range want {
		if dst.Pixels[c] != want[c] {
			t.Errorf("channel %d = %g, want %g", c, dst.Pixels[c], want[c])
		}
	}
	if !Matches(dst.Profile, profile) {
		t.Error("destination should carry a clone of the source profile")
	}
}

// A mid-grey linear pixel encodes to 188 in 8-bit sRGB.
func TestConvertLinearToSRGB(t *testing.T) {
	ctx := testContext()
	linear := gammaProfile(BT709Primaries, 1.0, 100)
	src := NewImage(1, 1, FormatRGBA, Depth32, linear)
	copy(src.Pixels, []float64{0.5, 0.5, 0.5, 1.0})

	srgb := SRGBProfile()
	params := NewConversionParams()
	params.ICCOverride = writeProfileBytes(t, srgb.iccData)
	params.Depth = Depth8

	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	for c := 0; c < 3; c++ {
		if math.Abs(dst.Pixels[c]-188) > 1 {
			t.Errorf("channel %d = %g, want 188 +/- 1", c, dst.Pixels[c])
		}
	}
	if dst.Pixels[3] != 255 {
		t.Errorf("alpha = %g, want 255", dst.Pixels[3])
	}
}

// PQ diffuse white tonemapped down to a 100-nit SDR display must stay
// renderable, and identical across worker counts.
func TestConvertPQToSDR(t *testing.T) {
	ctx := testContext()
	pq := NewProfile(BT2020Primaries, TransferCurve{Kind: CurvePQ}, 10000, "PQ 10000nit")
	src := NewImage(1, 1, FormatRGBA, Depth32, pq)
	copy(src.Pixels, []float64{0.58, 0.58, 0.58, 1.0})

	run := func(jobs int) []float64 {
		params := NewConversionParams()
		params.Gamma = 2.2
		params.Luminance = 100
		params.Tonemap = TonemapOn
		params.Depth = Depth8
		params.Jobs = jobs

		dst, err := Convert(ctx, src, params)
		if err != nil {
			t.Fatal(err)
		}
		return dst.Pixels
	}

	reference := run(1)
	for c := 0; c < 3; c++ {
		if reference[c] <= 0 || reference[c] > 255 {
			t.Errorf("channel %d = %g, want in (0, 255]", c, reference[c])
		}
	}
	for jobs := 2; jobs <= 8; jobs++ {
		got := run(jobs)
		for i := range reference {
			if got[i] != reference[i] {
				t.Fatalf("jobs=%d: sample %d = %g, want %g", jobs, i, got[i], reference[i])
			}
		}
	}
}

// The override profile's luminance wins only when the profile actually
// carries a luminance tag; otherwise the source luminance is kept.
func TestConvertOverrideLuminance(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(1, 1, FormatRGBA, Depth8, profile)
	copy(src.Pixels, []float64{128, 128, 128, 255})

	matrix := rgbToXYZ(BT709Primaries)

	// With a luminance tag: 100 -> 300 nits rescales the pixel darker.
	params := NewConversionParams()
	params.ICCOverride = writeProfileFile(t, iccprofile.NewMatrixTRCProfile(matrix, 2.2, 300, "300nit"))
	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Pixels[0] >= 100 {
		t.Errorf("scaled pixel = %g, want well below 128", dst.Pixels[0])
	}

	// Without one: luminance falls back to the source and the value is
	// preserved.
	params.ICCOverride = writeProfileFile(t, iccprofile.NewMatrixTRCProfile(matrix, 2.2, 0, "untagged"))
	dst, err = Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dst.Pixels[0]-128) > 1 {
		t.Errorf("pixel = %g, want 128 +/- 1", dst.Pixels[0])
	}
}

func TestConvertResize(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(2, 2, FormatRGBA, Depth8, profile)
	for i := 0; i < 4; i++ {
		copy(src.Pixels[i*4:], []float64{200, 100, 50, 255})
	}

	params := NewConversionParams()
	params.ResizeW, params.ResizeH = 4, 4

	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Width != 4 || dst.Height != 4 {
		t.Fatalf("resized to %dx%d, want 4x4", dst.Width, dst.Height)
	}
	for i := 0; i < 16; i++ {
		p := dst.Pixels[i*4 : i*4+4]
		for c, want := range []float64{200, 100, 50, 255} {
			if math.Abs(p[c]-want) > 1 {
				t.Errorf("pixel %d channel %d = %g, want %g +/- 1", i, c, p[c], want)
			}
		}
	}
}

func TestConvertResizeKeepsAspect(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(8, 4, FormatRGBA, Depth8, profile)

	params := NewConversionParams()
	params.ResizeW = 4

	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Width != 4 || dst.Height != 2 {
		t.Errorf("resized to %dx%d, want 4x2", dst.Width, dst.Height)
	}
}

func TestConvertHaldIdentity(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(1, 1, FormatRGBA, Depth8, profile)
	copy(src.Pixels, []float64{200, 100, 50, 255})

	params := NewConversionParams()
	params.Hald = identityHald(4)

	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	for c, want := range []float64{200, 100, 50, 255} {
		if math.Abs(dst.Pixels[c]-want) > 1 {
			t.Errorf("channel %d = %g, want %g +/- 1", c, dst.Pixels[c], want)
		}
	}
}

func TestConvertAutoGrade(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 600)
	src := NewImage(16, 16, FormatRGBA, Depth8, profile)
	for i := 0; i < 256; i++ {
		v := float64(i)
		copy(src.Pixels[i*4:], []float64{v, v, v, 255})
	}

	params := NewConversionParams()
	params.AutoGrade = true
	params.Gamma = 0
	params.Luminance = 0

	dst, err := Convert(ctx, src, params)
	if err != nil {
		t.Fatal(err)
	}
	_, curve, lum := dst.Profile.Query()
	if curve.Kind != CurveGamma || curve.Gamma < 2.0 || curve.Gamma > 4.0 {
		t.Errorf("graded curve = %+v, want a gamma in [2, 4]", curve)
	}
	if lum <= 0 || lum > 600 {
		t.Errorf("graded luminance = %g, want in (0, 600]", lum)
	}
}

func TestConvertErrors(t *testing.T) {
	ctx := testContext()
	profile := gammaProfile(BT709Primaries, 2.2, 100)
	src := NewImage(1, 1, FormatRGBA, Depth8, profile)

	assertKind := func(err error, kind ErrorKind) {
		t.Helper()
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Kind != kind {
			t.Fatalf("err = %v, want kind %v", err, kind)
		}
	}

	// Unreadable override path.
	params := NewConversionParams()
	params.ICCOverride = filepath.Join(t.TempDir(), "missing.icc")
	_, err := Convert(ctx, src, params)
	assertKind(err, InvalidProfileOverride)

	// Invalid destination primaries.
	params = NewConversionParams()
	params.Primaries = &ChromaticityPrimaries{}
	_, err = Convert(ctx, src, params)
	assertKind(err, InvalidDestination)

	// Synthesizing from a non-gamma source curve without an explicit
	// gamma.
	pq := NewProfile(BT2020Primaries, TransferCurve{Kind: CurvePQ}, 10000, "PQ")
	pqSrc := NewImage(1, 1, FormatRGBA, Depth8, pq)
	params = NewConversionParams()
	params.Description = "needs a synthesized profile"
	_, err = Convert(ctx, pqSrc, params)
	assertKind(err, UnsupportedCurve)

	// Non-cubic Hald.
	params = NewConversionParams()
	params.Hald = NewImage(257, 257, FormatRGBA, Depth8, Profile{})
	_, err = Convert(ctx, src, params)
	assertKind(err, InvalidHald)

	// Empty source.
	empty := NewImage(0, 0, FormatRGBA, Depth8, profile)
	_, err = Convert(ctx, empty, NewConversionParams())
	assertKind(err, AllocationFailed)
}
