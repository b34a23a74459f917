package colorist

import (
	"math"
	"sync"

	"go.colorist.dev/colorist/internal/cmm"
	"go.colorist.dev/colorist/internal/iccprofile"
)

// Tonemap selects whether luminance-range compression is applied when a
// Transform scales from a brighter space into a dimmer one.
type Tonemap int

// Tonemap modes.
const (
	TonemapAuto Tonemap = iota
	TonemapOn
	TonemapOff
)

// autoTonemapThreshold: the small amount after the 1.0 buys a little
// imprecision wiggle room on an automatic tonemap; it is fine to clip if
// the luminance scale is this close.
const autoTonemapThreshold = 1.001

// luminanceScaleEpsilon is the smallest difference between the source
// and destination absolute luminance products that still forces
// luminance scaling on.
const luminanceScaleEpsilon = 1e-5

// Transform converts pixels between two profile/format/depth endpoints.
// The descriptor fields are fixed at construction; the derived matrices,
// transfer variants, luminance decisions, and engine choice are computed
// once on first use and read-only afterwards, so a prepared Transform is
// safe for concurrent Run calls.
//
// A nil profile on either side denotes the identity endpoint: pixels on
// that side are already (or stay) XYZ, with no matrix and no transfer
// function applied.
type Transform struct {
	SrcProfile *Profile
	SrcFormat  Format
	SrcDepth   Depth
	DstProfile *Profile
	DstFormat  Format
	DstDepth   Depth
	Tonemap    Tonemap

	once sync.Once
	prep prepared
}

// prepared is the state derived lazily from the Transform descriptor.
type prepared struct {
	builtin bool

	srcToXYZ [9]float64
	xyzToDst [9]float64

	srcCurve    TransferCurve
	dstCurve    TransferCurve
	srcHasCurve bool
	dstHasCurve bool

	srcLuminance  float64
	dstLuminance  float64
	srcCurveScale float64
	dstCurveScale float64
	hlgPeak       float64

	whiteX, whiteY float64

	luminanceScaleEnabled bool
	tonemapEnabled        bool

	cmmSrcToXYZ cmm.TransformHandle
	cmmXYZToDst cmm.TransformHandle
	cmmCombined cmm.TransformHandle
	cmmProfiles []cmm.ProfileHandle

	err error
}

// NewTransform builds a transform descriptor. Preparation is deferred to
// the first Run (or LuminanceScale) call and performed exactly once.
func NewTransform(_ *Context, srcProfile *Profile, srcFormat Format, srcDepth Depth, dstProfile *Profile, dstFormat Format, dstDepth Depth, tonemap Tonemap) *Transform {
	return &Transform{
		SrcProfile: srcProfile,
		SrcFormat:  srcFormat,
		SrcDepth:   srcDepth,
		DstProfile: dstProfile,
		DstFormat:  dstFormat,
		DstDepth:   dstDepth,
		Tonemap:    tonemap,
	}
}

func (t *Transform) prepare(ctx *Context) error {
	t.once.Do(func() {
		t.prep = t.buildPrepared(ctx)
	})
	return t.prep.err
}

// LuminanceScale reports the overall luminance ratio the transform
// applies, including each curve's implicit scale.
func (t *Transform) LuminanceScale(ctx *Context) float64 {
	if err := t.prepare(ctx); err != nil {
		return 1
	}
	return t.prep.srcLuminance / t.prep.dstLuminance * t.prep.srcCurveScale / t.prep.dstCurveScale
}

// Close releases the external CMM handles owned by this Transform. It is
// a no-op for the built-in engine and for unprepared transforms.
func (t *Transform) Close() {
	for _, h := range []cmm.TransformHandle{t.prep.cmmSrcToXYZ, t.prep.cmmXYZToDst, t.prep.cmmCombined} {
		if h != 0 {
			cmm.DeleteTransform(h)
		}
	}
	for _, h := range t.prep.cmmProfiles {
		cmm.ReleaseProfile(h)
	}
}

// srcEndpoint and dstEndpoint treat the PCS sentinel profile exactly
// like a missing profile: an identity XYZ endpoint.
func (t *Transform) srcEndpoint() *Profile {
	if t.SrcProfile != nil && t.SrcProfile.isPCS {
		return nil
	}
	return t.SrcProfile
}

func (t *Transform) dstEndpoint() *Profile {
	if t.DstProfile != nil && t.DstProfile.isPCS {
		return nil
	}
	return t.DstProfile
}

func (t *Transform) buildPrepared(ctx *Context) prepared {
	var p prepared
	srcProfile, dstProfile := t.srcEndpoint(), t.dstEndpoint()

	// White point priority: dst > src > D65.
	p.whiteX, p.whiteY = DefaultWhite[0], DefaultWhite[1]

	var srcPrimaries, dstPrimaries ChromaticityPrimaries
	srcUsesHLGScaling := false
	if srcProfile != nil {
		prim, curve, lum := srcProfile.Query()
		if lum == 0 {
			lum = ctx.defaultLum()
			if curve.Kind == CurveHLG {
				srcUsesHLGScaling = true
			}
		}
		srcPrimaries = prim
		p.srcCurve = curve
		p.srcHasCurve = true
		p.srcLuminance = lum
		p.srcCurveScale = curveScale(curve, lum)
		p.whiteX, p.whiteY = prim.WX, prim.WY
	} else {
		p.srcLuminance = 1
		p.srcCurveScale = 1
	}

	dstUsesHLGScaling := false
	if dstProfile != nil {
		prim, curve, lum := dstProfile.Query()
		if lum == 0 {
			lum = ctx.defaultLum()
			if curve.Kind == CurveHLG {
				dstUsesHLGScaling = true
			}
		}
		dstPrimaries = prim
		p.dstCurve = curve
		p.dstHasCurve = true
		p.dstLuminance = lum
		p.dstCurveScale = curveScale(curve, lum)
		p.whiteX, p.whiteY = prim.WX, prim.WY
	} else {
		p.dstLuminance = 1
		p.dstCurveScale = 1
	}

	if srcUsesHLGScaling || dstUsesHLGScaling {
		p.hlgPeak = calcHLGPeak(ctx.defaultLum())
		ctx.logf("hlg", "HLG: max luminance %.2f nits, based on diffuse white of %g nits", p.hlgPeak, ctx.defaultLum())
		if srcUsesHLGScaling {
			p.srcLuminance = p.hlgPeak
		}
		if dstUsesHLGScaling {
			p.dstLuminance = p.hlgPeak
		}
	}

	p.builtin = ctx.CCMMAllowed &&
		(srcProfile == nil || srcProfile.UsesBuiltinCMM()) &&
		(dstProfile == nil || dstProfile.UsesBuiltinCMM())

	srcProduct := p.srcLuminance * p.srcCurveScale
	dstProduct := p.dstLuminance * p.dstCurveScale

	switch t.Tonemap {
	case TonemapAuto:
		p.tonemapEnabled = srcProduct/dstProduct > autoTonemapThreshold
	case TonemapOn:
		p.tonemapEnabled = true
	case TonemapOff:
		p.tonemapEnabled = false
	}

	// Tonemapping requires the xyY luminance pass, so it implies scaling.
	p.luminanceScaleEnabled = !p.builtin ||
		srcProfile == nil || dstProfile == nil ||
		p.tonemapEnabled ||
		math.Abs(srcProduct-dstProduct) > luminanceScaleEpsilon

	if p.builtin {
		if srcProfile != nil && dstProfile != nil && primariesMatch(srcPrimaries, dstPrimaries) {
			// Close-enough primaries are forced equal so srcToXYZ and
			// xyzToDst derive from the same coordinates and stay exact
			// inverses of one another, helping round trips.
			srcPrimaries = dstPrimaries
		}

		identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
		p.srcToXYZ = identity
		if srcProfile != nil {
			p.srcToXYZ = rgbToXYZ(srcPrimaries)
		}
		dstToXYZ := identity
		if dstProfile != nil {
			dstToXYZ = rgbToXYZ(dstPrimaries)
		}
		if inv := invertMatrix3x3(dstToXYZ); inv != nil {
			p.xyzToDst = *inv
		} else {
			p.xyzToDst = identity
		}
		return p
	}

	// External CMM: register both endpoints (the identity endpoint is the
	// sentinel PCS XYZ profile) and build the three bridge transforms.
	srcHandle, err := t.registerEndpoint(&p, srcProfile)
	if err != nil {
		p.err = err
		return p
	}
	dstHandle, err := t.registerEndpoint(&p, dstProfile)
	if err != nil {
		p.err = err
		return p
	}
	xyzHandle, err := t.registerEndpoint(&p, nil)
	if err != nil {
		p.err = err
		return p
	}

	flags := cmm.FlagCopyAlpha | cmm.FlagNoOptimize
	p.cmmSrcToXYZ, err = cmm.CreateTransform(srcHandle, t.SrcFormat.cmmFormat(), xyzHandle, cmm.PixelFormatXYZFloat, cmm.IntentAbsoluteColorimetric, flags)
	if err == nil {
		p.cmmXYZToDst, err = cmm.CreateTransform(xyzHandle, cmm.PixelFormatXYZFloat, dstHandle, t.DstFormat.cmmFormat(), cmm.IntentAbsoluteColorimetric, flags)
	}
	if err == nil {
		p.cmmCombined, err = cmm.CreateTransform(srcHandle, t.SrcFormat.cmmFormat(), dstHandle, t.DstFormat.cmmFormat(), cmm.IntentAbsoluteColorimetric, flags)
	}
	if err != nil {
		p.err = wrapError(InvalidDestination, "creating external CMM transform", err)
		ctx.logError("external CMM transform creation failed: %v", err)
	}
	return p
}

// registerEndpoint registers a profile (or, for nil, the sentinel PCS
// XYZ profile) with the external CMM and records the handle for Close.
func (t *Transform) registerEndpoint(p *prepared, profile *Profile) (cmm.ProfileHandle, error) {
	var data []byte
	var err error
	if profile != nil && !profile.isPCS {
		data, err = profile.iccBytes()
	} else {
		data, err = iccprofile.NewXYZProfile().Encode()
	}
	if err != nil {
		return 0, err
	}
	h, err := cmm.RegisterProfile(data)
	if err != nil {
		return 0, wrapError(InvalidDestination, "registering profile with external CMM", err)
	}
	p.cmmProfiles = append(p.cmmProfiles, h)
	return h, nil
}

func (f Format) cmmFormat() cmm.PixelFormat {
	if f == FormatXYZ {
		return cmm.PixelFormatXYZFloat
	}
	return cmm.PixelFormatRGBFloat
}
