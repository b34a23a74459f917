package colorist

import "fmt"

// ConversionParams steers [Convert]. The zero value requests an
// all-auto conversion with an XYZ output layout, which is rarely what a
// caller wants; start from [NewConversionParams] instead.
type ConversionParams struct {
	// Primaries overrides the destination chromaticities when non-nil.
	Primaries *ChromaticityPrimaries

	// Gamma selects the destination transfer gamma: -1 inherits the
	// source curve, 0 leaves it to AutoGrade (and inherits when AutoGrade
	// is off), positive values are used as-is.
	Gamma float64

	// Luminance selects the destination luminance in nits: -1 inherits,
	// 0 leaves it to AutoGrade (and inherits when AutoGrade is off),
	// positive values are used as-is.
	Luminance float64

	// Depth is the destination bit depth; 0 inherits the source depth.
	Depth Depth

	// Format is the destination channel layout.
	Format Format

	// AutoGrade jointly searches for the output luminance and gamma
	// that minimize quantization error of the linear image.
	AutoGrade bool

	// ResizeW/ResizeH request a resize; one of them may be 0 to keep
	// the source aspect ratio.
	ResizeW, ResizeH int
	ResizeFilter     ResizeFilter

	// ICCOverride, when set, loads the destination profile from this
	// path instead of synthesizing or cloning one.
	ICCOverride string

	// Hald, when non-nil, post-processes the converted pixels through
	// this Hald CLUT image.
	Hald *Image

	Tonemap     Tonemap
	Description string
	Copyright   string

	// Jobs sets the worker count; 0 uses the context default.
	Jobs int
}

// NewConversionParams returns the defaults: inherit everything from the
// source, RGBA output, automatic tonemap decision.
func NewConversionParams() ConversionParams {
	return ConversionParams{
		Gamma:     -1,
		Luminance: -1,
		Format:    FormatRGBA,
		Tonemap:   TonemapAuto,
	}
}

// Convert converts a source image per params, producing a new
// destination image. On any failure the partially built destination is
// discarded and a nil image is returned with the error.
func Convert(ctx *Context, src *Image, params ConversionParams) (*Image, error) {
	jobs := ctx.jobs(params.Jobs)

	if src.Width <= 0 || src.Height <= 0 {
		err := newErrorf(AllocationFailed, "source image has no pixels [%dx%d]", src.Width, src.Height)
		ctx.logError("%v", err)
		return nil, err
	}

	// Parse the source image and params for early pipeline decisions.
	srcPrimaries, srcCurve, srcLuminance := src.Profile.Query()
	if srcLuminance == 0 {
		srcLuminance = ctx.defaultLum()
	}
	srcGamma := 0.0
	if srcCurve.Kind == CurveGamma {
		srcGamma = srcCurve.Gamma
	}

	dstPrimaries := srcPrimaries
	if params.Primaries != nil {
		dstPrimaries = *params.Primaries
	}

	dstLuminance := 0.0
	switch {
	case params.Luminance < 0:
		dstLuminance = srcLuminance
	case params.Luminance > 0:
		dstLuminance = params.Luminance
	}

	dstGamma := 0.0
	switch {
	case params.Gamma < 0:
		dstGamma = srcGamma
	case params.Gamma > 0:
		dstGamma = params.Gamma
	}

	dstDepth := params.Depth
	if dstDepth == 0 {
		dstDepth = src.Depth
	}

	if !params.AutoGrade {
		if dstGamma == 0 {
			dstGamma = srcGamma
		}
		if dstLuminance == 0 {
			dstLuminance = srcLuminance
		}
	}

	dstWidth, dstHeight := src.Width, src.Height
	if params.ResizeW > 0 || params.ResizeH > 0 {
		switch {
		case params.ResizeW <= 0:
			dstWidth = int(float64(src.Width) / float64(src.Height) * float64(params.ResizeH))
			dstHeight = params.ResizeH
		case params.ResizeH <= 0:
			dstWidth = params.ResizeW
			dstHeight = int(float64(src.Height) / float64(src.Width) * float64(params.ResizeW))
		default:
			dstWidth = params.ResizeW
			dstHeight = params.ResizeH
		}
		if dstWidth <= 0 {
			dstWidth = 1
		}
		if dstHeight <= 0 {
			dstHeight = 1
		}
	}
	resizing := dstWidth != src.Width || dstHeight != src.Height

	// Load the output profile override, if any.
	var dstProfile Profile
	haveDstProfile := false
	if params.ICCOverride != "" {
		loaded, err := ReadProfile(params.ICCOverride)
		if err != nil {
			ctx.logError("invalid destination profile override: %s", params.ICCOverride)
			return nil, err
		}
		dstProfile = loaded
		haveDstProfile = true

		// Pull dstLuminance out of the overridden profile if it carries
		// one, falling back to the source luminance otherwise. Writing
		// the fallback into the profile keeps the final transform's view
		// of the destination consistent with ours.
		if dstProfile.LuminanceNits > 0 {
			dstLuminance = dstProfile.LuminanceNits
		} else {
			dstLuminance = srcLuminance
			dstProfile.LuminanceNits = dstLuminance
		}
		ctx.logf("profile", "overriding dst profile with file: %s", params.ICCOverride)
	}

	// Decide whether an intermediate linear float buffer is needed, or
	// whether one direct transform suffices.
	convertDirectly := true
	if srcLuminance != dstLuminance {
		convertDirectly = false
	}
	if resizing {
		convertDirectly = false
	}
	if (src.Depth != Depth8 && src.Depth != Depth16) || (dstDepth != Depth8 && dstDepth != Depth16) {
		convertDirectly = false
	}
	if params.AutoGrade {
		// grading inspects the linear pixels
		convertDirectly = false
	}

	var hald *HaldCLUT
	if params.Hald != nil {
		h, err := NewHaldCLUT(params.Hald)
		if err != nil {
			ctx.logError("%v", err)
			return nil, err
		}
		hald = h
		ctx.logf("hald", "loaded %dx%dx%d Hald CLUT", h.dim, h.dim, h.dim)
		convertDirectly = false
	}

	// Materialize the intermediate gamma-1.0 float pixels when needed.
	var linearPixels []float64
	linearCount := 0
	if !convertDirectly {
		linearProfile := NewProfile(dstPrimaries, TransferCurve{Kind: CurveGamma, Gamma: 1}, srcLuminance, "Linear")
		linearCount = src.Width * src.Height
		linearPixels = make([]float64, linearCount*4)

		toLinear := NewTransform(ctx, &src.Profile, src.Format, src.Depth, &linearProfile, FormatRGBA, Depth32, TonemapOff)
		defer toLinear.Close()
		ctx.logf("convert", "calculating linear pixels")
		if err := toLinear.Run(ctx, jobs, src.Pixels, linearPixels, linearCount); err != nil {
			return nil, err
		}
	}

	if params.AutoGrade {
		ctx.logf("grading", "color grading")
		colorGrade(ctx, jobs, linearPixels, linearCount, srcLuminance, dstDepth, &dstLuminance, &dstGamma)
		ctx.logf("grading", "using maxLum: %g, gamma: %g", dstLuminance, dstGamma)
	}

	if dstLuminance <= 0 {
		err := newErrorf(InvalidDestination, "destination luminance (%g) is invalid", dstLuminance)
		ctx.logError("%v", err)
		return nil, err
	}

	// Luminance scale and tonemap decision. Auto-grading never scales a
	// pixel below the brightest source pixel, so tonemapping is
	// unnecessary there.
	luminanceScale := srcLuminance / dstLuminance
	tonemap := luminanceScale > 1 && !params.AutoGrade
	if params.Tonemap != TonemapAuto {
		tonemap = params.Tonemap == TonemapOn
	}

	// Create the destination profile, or clone the source one.
	if !haveDstProfile {
		if params.Primaries != nil || srcGamma != dstGamma || srcLuminance != dstLuminance ||
			params.Description != "" || params.Copyright != "" {
			if dstPrimaries.RX <= 0 || dstPrimaries.RY <= 0 ||
				dstPrimaries.GX <= 0 || dstPrimaries.GY <= 0 ||
				dstPrimaries.BX <= 0 || dstPrimaries.BY <= 0 ||
				dstPrimaries.WX <= 0 || dstPrimaries.WY <= 0 {
				err := newError(InvalidDestination, "destination primaries are invalid")
				ctx.logError("%v", err)
				return nil, err
			}
			if dstGamma <= 0 {
				err := newError(UnsupportedCurve, "source curve is not a simple gamma curve and no explicit gamma was supplied")
				ctx.logError("%v", err)
				return nil, err
			}

			description := params.Description
			if description == "" {
				description = generateDescription(dstPrimaries, dstGamma, dstLuminance)
			}
			ctx.logf("profile", "creating new destination profile: %q", description)
			dstProfile = NewProfile(dstPrimaries, TransferCurve{Kind: CurveGamma, Gamma: dstGamma}, dstLuminance, description)

			if params.Copyright != "" {
				ctx.logf("profile", "setting copyright: %q", params.Copyright)
				tagged, err := dstProfile.SetLocalizedTag("cprt", "en", "US", params.Copyright)
				if err != nil {
					ctx.logError("%v", err)
					return nil, err
				}
				dstProfile = tagged
			}
		} else {
			ctx.logf("profile", "using unmodified source profile: %q", src.Profile.Description)
			dstProfile = src.Profile.Clone()
		}
	}

	if resizing {
		ctx.logf("resize", "resizing %dx%d -> [filter:%s] -> %dx%d", src.Width, src.Height, params.ResizeFilter, dstWidth, dstHeight)
		linearPixels = resample(linearPixels, src.Width, src.Height, dstWidth, dstHeight, params.ResizeFilter)
		linearCount = dstWidth * dstHeight
	}

	dstImage := NewImage(dstWidth, dstHeight, params.Format, dstDepth, dstProfile)

	if convertDirectly {
		ctx.logf("convert", "converting directly")
		direct := NewTransform(ctx, &src.Profile, src.Format, src.Depth, &dstImage.Profile, dstImage.Format, dstDepth, TonemapOff)
		defer direct.Close()
		if err := direct.Run(ctx, jobs, src.Pixels, dstImage.Pixels, src.Width*src.Height); err != nil {
			return nil, err
		}
		return dstImage, nil
	}

	if srcLuminance != dstLuminance {
		mode := "clip"
		if tonemap {
			mode = "tonemap"
		}
		ctx.logf("luminance", "scaling luminance (%gx, %s)", luminanceScale, mode)
		scaleLuminance(linearPixels, linearCount, luminanceScale, tonemap)
	}

	ctx.logf("convert", "performing color conversion")
	fromProfile := NewProfile(dstPrimaries, TransferCurve{Kind: CurveGamma, Gamma: 1}, dstLuminance, "Linear")
	fromLinear := NewTransform(ctx, &fromProfile, FormatRGBA, Depth32, &dstImage.Profile, dstImage.Format, Depth32, TonemapOff)
	defer fromLinear.Close()

	ch := dstImage.channels()
	dstFloats := make([]float64, linearCount*ch)
	if err := fromLinear.Run(ctx, jobs, linearPixels, dstFloats, linearCount); err != nil {
		return nil, err
	}

	if hald != nil {
		ctx.logf("hald", "performing Hald CLUT postprocessing")
		out := make([]float64, len(dstFloats))
		for i := 0; i < linearCount; i++ {
			hald.Lookup(out[i*ch:i*ch+ch], dstFloats[i*ch:i*ch+ch])
		}
		dstFloats = out
	}

	floatToUNorm(dstFloats, dstImage.Pixels, dstDepth, linearCount*ch)
	return dstImage, nil
}

// generateDescription names a synthesized destination profile after its
// primaries, gamma, and luminance.
func generateDescription(primaries ChromaticityPrimaries, gamma, luminance float64) string {
	name := "Custom"
	switch {
	case primariesMatch(primaries, BT709Primaries):
		name = "BT.709"
	case primariesMatch(primaries, DCIP3Primaries):
		name = "P3"
	case primariesMatch(primaries, BT2020Primaries):
		name = "BT.2020"
	}
	return fmt.Sprintf("%s Gamma %.2g %dnit", name, gamma, int(luminance))
}
