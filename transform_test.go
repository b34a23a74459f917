package colorist

import (
	"math"
	"testing"
)

func testContext() *Context {
	ctx := NewContext()
	ctx.Jobs = 2
	return ctx
}

func gammaProfile(primaries ChromaticityPrimaries, gamma, luminance float64) Profile {
	return NewProfile(primaries, TransferCurve{Kind: CurveGamma, Gamma: gamma}, luminance, "test")
}

func TestPrepareIdenticalProfiles(t *testing.T) {
	ctx := testContext()
	src := gammaProfile(BT709Primaries, 2.2, 100)
	dst := gammaProfile(BT709Primaries, 2.2, 100)

	xf := NewTransform(ctx, &src, FormatRGBA, Depth8, &dst, FormatRGBA, Depth8, TonemapAuto)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if !xf.prep.builtin {
		t.Error("expected the built-in engine")
	}
	if xf.prep.luminanceScaleEnabled {
		t.Error("equal luminances must not enable scaling")
	}
	if xf.prep.tonemapEnabled {
		t.Error("equal luminances must not enable tonemapping")
	}
	if got := xf.LuminanceScale(ctx); math.Abs(got-1) > 1e-12 {
		t.Errorf("LuminanceScale = %g, want 1", got)
	}
}

func TestPreparePQToSDR(t *testing.T) {
	ctx := testContext()
	src := NewProfile(BT2020Primaries, TransferCurve{Kind: CurvePQ}, 10000, "PQ")
	dst := gammaProfile(BT709Primaries, 2.2, 100)

	xf := NewTransform(ctx, &src, FormatRGBA, Depth16, &dst, FormatRGBA, Depth8, TonemapAuto)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if !xf.prep.tonemapEnabled {
		t.Error("10000 -> 100 nits should auto-enable tonemapping")
	}
	if !xf.prep.luminanceScaleEnabled {
		t.Error("tonemapping implies luminance scaling")
	}
	if got := xf.LuminanceScale(ctx); math.Abs(got-100) > 1e-9 {
		t.Errorf("LuminanceScale = %g, want 100", got)
	}
}

func TestPrepareTonemapImpliesScaling(t *testing.T) {
	ctx := testContext()
	src := gammaProfile(BT709Primaries, 2.2, 100)
	dst := gammaProfile(BT709Primaries, 2.2, 100)

	xf := NewTransform(ctx, &src, FormatRGBA, Depth8, &dst, FormatRGBA, Depth8, TonemapOn)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if !xf.prep.tonemapEnabled || !xf.prep.luminanceScaleEnabled {
		t.Error("forced tonemap must enable both tonemapping and scaling")
	}
}

func TestPrepareHLGUnspecifiedLuminance(t *testing.T) {
	ctx := testContext()
	src := NewProfile(BT2020Primaries, TransferCurve{Kind: CurveHLG}, 0, "HLG")
	dst := gammaProfile(BT709Primaries, 2.2, 100)

	xf := NewTransform(ctx, &src, FormatRGBA, Depth16, &dst, FormatRGBA, Depth8, TonemapOff)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	wantPeak := calcHLGPeak(ctx.DefaultLuminance)
	if xf.prep.hlgPeak != wantPeak {
		t.Errorf("hlgPeak = %g, want %g", xf.prep.hlgPeak, wantPeak)
	}
	if xf.prep.srcLuminance != wantPeak {
		t.Errorf("srcLuminance = %g, want the solved HLG peak %g", xf.prep.srcLuminance, wantPeak)
	}
	if got := diffuseWhite(wantPeak); got < ctx.DefaultLuminance {
		t.Errorf("diffuse white of the solved peak = %g, want >= %g", got, ctx.DefaultLuminance)
	}
}

func TestPrepareWhitePointPriority(t *testing.T) {
	ctx := testContext()

	// No profiles: D65.
	xf := NewTransform(ctx, nil, FormatXYZ, Depth32, nil, FormatXYZ, Depth32, TonemapOff)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if xf.prep.whiteX != DefaultWhite[0] || xf.prep.whiteY != DefaultWhite[1] {
		t.Errorf("white = (%g, %g), want D65", xf.prep.whiteX, xf.prep.whiteY)
	}

	// Destination overrides source.
	equalEnergy := BT709Primaries
	equalEnergy.WX, equalEnergy.WY = 1.0/3, 1.0/3
	src := gammaProfile(BT709Primaries, 2.2, 100)
	dst := gammaProfile(equalEnergy, 2.2, 100)
	xf = NewTransform(ctx, &src, FormatRGBA, Depth8, &dst, FormatRGBA, Depth8, TonemapOff)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if xf.prep.whiteX != equalEnergy.WX || xf.prep.whiteY != equalEnergy.WY {
		t.Errorf("white = (%g, %g), want the destination's", xf.prep.whiteX, xf.prep.whiteY)
	}
}

func TestPrepareEngineSelection(t *testing.T) {
	ctx := testContext()
	src := gammaProfile(BT709Primaries, 2.2, 100)
	dst := SRGBProfile()

	// An ICC-backed endpoint forces the external engine.
	xf := NewTransform(ctx, &src, FormatRGBA, Depth8, &dst, FormatRGBA, Depth8, TonemapOff)
	if err := xf.prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer xf.Close()
	if xf.prep.builtin {
		t.Error("ICC-backed destination should select the external CMM")
	}
	if xf.prep.cmmSrcToXYZ == 0 || xf.prep.cmmXYZToDst == 0 || xf.prep.cmmCombined == 0 {
		t.Error("external engine must create all three bridge transforms")
	}

	// The context switch forces it too, even for representable profiles.
	ctx2 := testContext()
	ctx2.CCMMAllowed = false
	dst2 := gammaProfile(BT709Primaries, 2.4, 100)
	xf2 := NewTransform(ctx2, &src, FormatRGBA, Depth8, &dst2, FormatRGBA, Depth8, TonemapOff)
	if err := xf2.prepare(ctx2); err != nil {
		t.Fatal(err)
	}
	defer xf2.Close()
	if xf2.prep.builtin {
		t.Error("CCMMAllowed=false must select the external CMM")
	}
}

func TestExternalMatchesBuiltin(t *testing.T) {
	src := gammaProfile(BT709Primaries, 2.2, 100)
	dst := gammaProfile(BT709Primaries, 2.4, 100)
	srcPixels := []float64{128, 64, 200, 255}
	pixels := func(ctx *Context) []float64 {
		xf := NewTransform(ctx, &src, FormatRGBA, Depth8, &dst, FormatRGBA, Depth8, TonemapOff)
		defer xf.Close()
		out := make([]float64, 4)
		if err := xf.Run(ctx, 1, srcPixels, out, 1); err != nil {
			t.Fatal(err)
		}
		return out
	}

	builtin := pixels(testContext())
	extCtx := testContext()
	extCtx.CCMMAllowed = false
	external := pixels(extCtx)

	for c := range builtin {
		if math.Abs(builtin[c]-external[c]) > 1 {
			t.Errorf("channel %d: builtin %g vs external %g", c, builtin[c], external[c])
		}
	}
}
