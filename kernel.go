package colorist

import (
	"math"

	"go.colorist.dev/colorist/internal/cmm"
)

// Run converts pixelCount pixels from srcPixels into dstPixels, splitting
// the work across up to tasks workers. Sample layout follows the
// Transform's formats and depths: integer depths hold one code value per
// channel, float depth holds raw floats. When the two profiles match
// semantically the colour math is bypassed entirely and only the
// format/depth reformat runs.
func (t *Transform) Run(ctx *Context, tasks int, srcPixels, dstPixels []float64, pixelCount int) error {
	if err := t.prepare(ctx); err != nil {
		return err
	}

	srcCh := t.SrcFormat.channels()
	dstCh := t.DstFormat.channels()
	bypass := t.profilesMatch()

	parallelFor(ctx.jobs(tasks), pixelCount, func(start, count int) {
		src := srcPixels[start*srcCh : (start+count)*srcCh]
		dst := dstPixels[start*dstCh : (start+count)*dstCh]
		if bypass {
			t.reformatSlab(src, dst, count)
		} else {
			t.transformSlab(src, dst, count)
		}
	})
	return nil
}

// profilesMatch reports whether source and destination denote the same
// colour space, so that only reformatting is needed.
func (t *Transform) profilesMatch() bool {
	src, dst := t.srcEndpoint(), t.dstEndpoint()
	if src == nil || dst == nil {
		return src == dst
	}
	return src == dst || Matches(*src, *dst)
}

// reformatSlab converts depth and channel count without touching colour.
func (t *Transform) reformatSlab(src, dst []float64, count int) {
	srcCh := t.SrcFormat.channels()
	dstCh := t.DstFormat.channels()
	srcMax := t.SrcDepth.maxCode()
	dstMax := t.DstDepth.maxCode()

	for i := 0; i < count; i++ {
		s := src[i*srcCh : i*srcCh+srcCh]
		d := dst[i*dstCh : i*dstCh+dstCh]

		var pixel [4]float64
		for c := 0; c < srcCh; c++ {
			v := s[c]
			if t.SrcDepth != Depth32 {
				v /= srcMax
			}
			pixel[c] = v
		}
		if srcCh < 4 {
			// widened alpha is full opacity
			pixel[3] = 1
		}

		for c := 0; c < dstCh; c++ {
			v := pixel[c]
			if t.DstDepth != Depth32 {
				v = roundNormalized(v, dstMax)
			}
			d[c] = v
		}
	}
}

// transformSlab runs the full per-pixel kernel over a slab. It is pure:
// all referenced transform state is read-only after preparation, so
// slabs may run concurrently and results are independent of slab count.
func (t *Transform) transformSlab(src, dst []float64, count int) {
	p := &t.prep
	srcCh := t.SrcFormat.channels()
	dstCh := t.DstFormat.channels()
	srcMax := t.SrcDepth.maxCode()
	dstMax := t.DstDepth.maxCode()

	for i := 0; i < count; i++ {
		s := src[i*srcCh : i*srcCh+srcCh]
		d := dst[i*dstCh : i*dstCh+dstCh]

		var pixel [4]float64
		for c := 0; c < srcCh; c++ {
			v := s[c]
			if t.SrcDepth != Depth32 {
				v /= srcMax
			}
			pixel[c] = v
		}
		if srcCh < 4 {
			pixel[3] = 1
		}

		out := t.convertPixel(p, pixel)

		for c := 0; c < dstCh; c++ {
			v := out[c]
			if t.DstDepth != Depth32 {
				v = roundNormalized(v, dstMax)
			}
			d[c] = v
		}
	}
}

// convertPixel is the scalar kernel: source EOTF, primary matrix to XYZ,
// optional xyY luminance scale/tonemap, inverse destination matrix,
// destination OETF, alpha carry. Invalid numeric inputs are clamped,
// never rejected.
func (t *Transform) convertPixel(p *prepared, in [4]float64) [4]float64 {
	var xyz [3]float64
	if p.builtin {
		var lin [3]float64
		if p.srcHasCurve {
			for c := 0; c < 3; c++ {
				v := in[c]
				if v < 0 {
					v = 0
				}
				lin[c] = eotf(p.srcCurve, p.srcLuminance, v)
			}
		} else {
			lin[0], lin[1], lin[2] = in[0], in[1], in[2]
		}
		xyz = mulMatVec3(p.srcToXYZ, lin)
	} else if p.luminanceScaleEnabled {
		_ = cmm.DoTransform(p.cmmSrcToXYZ, in[:3], xyz[:], 1)
	} else {
		var rgb [3]float64
		_ = cmm.DoTransform(p.cmmCombined, in[:3], rgb[:], 1)
		out := [4]float64{rgb[0], rgb[1], rgb[2], in[3]}
		if t.dstEndpoint() != nil {
			for c := 0; c < 3; c++ {
				out[c] = clamp01(out[c])
			}
		}
		return out
	}

	if p.luminanceScaleEnabled {
		x, y, Y := xyzToXyY(xyz, p.whiteX, p.whiteY)
		if p.builtin {
			// the external CMM applies the curve's implicit scale itself
			Y *= p.srcCurveScale
		}
		Y *= p.srcLuminance / p.dstLuminance
		Y /= p.dstCurveScale
		if p.tonemapEnabled {
			Y = tonemapReinhard(Y)
		}
		if !p.builtin {
			// re-apply the destination scale: the external XYZ->dst leg
			// expects its input overranged
			Y *= p.dstCurveScale
		}
		xyz = xyYToXYZ(x, y, Y)
	}

	var out [4]float64
	out[3] = in[3]
	if p.builtin {
		rgb := mulMatVec3(p.xyzToDst, xyz)
		if t.dstEndpoint() != nil { // don't clamp XYZ
			for c := 0; c < 3; c++ {
				rgb[c] = clamp01(rgb[c])
			}
		}
		if p.dstHasCurve {
			for c := 0; c < 3; c++ {
				v := rgb[c]
				if v < 0 {
					v = 0
				}
				rgb[c] = oetf(p.dstCurve, p.dstLuminance, v)
			}
		}
		out[0], out[1], out[2] = rgb[0], rgb[1], rgb[2]
	} else {
		var rgb [3]float64
		_ = cmm.DoTransform(p.cmmXYZToDst, xyz[:], rgb[:], 1)
		if t.dstEndpoint() != nil {
			for c := 0; c < 3; c++ {
				rgb[c] = clamp01(rgb[c])
			}
		}
		out[0], out[1], out[2] = rgb[0], rgb[1], rgb[2]
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// roundNormalized quantizes a normalized value to an integer code,
// clamping to the representable range first.
func roundNormalized(v, maxCode float64) float64 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return maxCode
	}
	return math.Floor(v*maxCode + 0.5)
}

// floatToUNorm quantizes float samples into integer code values in
// place; a plain copy at Depth32.
func floatToUNorm(src, dst []float64, depth Depth, samples int) {
	if depth == Depth32 {
		copy(dst[:samples], src[:samples])
		return
	}
	maxCode := depth.maxCode()
	for i := 0; i < samples; i++ {
		dst[i] = roundNormalized(src[i], maxCode)
	}
}
