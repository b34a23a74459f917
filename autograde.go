package colorist

import "math"

// gammaErrorTerm accumulates, over every colour channel of a linear RGBA
// float buffer, the absolute difference between the channel value and
// what survives a round trip through gamma encoding at the destination
// code range.
func gammaErrorTerm(gamma float64, pixels []float64, pixelCount int, maxCode, luminanceScale float64) float64 {
	invGamma := 1 / gamma
	errorTerm := 0.0
	for i := 0; i < pixelCount; i++ {
		p := pixels[i*4 : i*4+4]
		for c := 0; c < 3; c++ {
			scaled := clamp01(p[c] * luminanceScale)
			encoded := math.Floor(math.Pow(scaled, invGamma)*maxCode+0.5) / maxCode
			errorTerm += math.Abs(scaled - math.Pow(encoded, gamma))
		}
	}
	return errorTerm
}

// colorGrade jointly selects an output peak luminance and output gamma
// that minimize quantization error of the linear buffer when encoded at
// dstDepth. A zero *outLuminance is auto-detected from the brightest
// channel; a zero *outGamma is searched over 2.00..4.00 in steps of
// 0.05, with the candidate evaluations fanned out across the worker
// pool.
func colorGrade(ctx *Context, taskCount int, pixels []float64, pixelCount int, srcLuminance float64, dstDepth Depth, outLuminance, outGamma *float64) {
	if *outLuminance == 0 {
		// TODO: a histogram spending codepoints where the pixel values
		// actually are would grade dark HDR frames better than a flat max
		maxChannel := 0.0
		for i := 0; i < pixelCount; i++ {
			p := pixels[i*4 : i*4+4]
			for c := 0; c < 3; c++ {
				if p[c] > maxChannel {
					maxChannel = p[c]
				}
			}
		}
		maxLuminance := math.Floor(maxChannel*srcLuminance + 0.5)
		if maxLuminance < 0 {
			maxLuminance = 0
		}
		if maxLuminance > srcLuminance {
			maxLuminance = srcLuminance
		}
		*outLuminance = maxLuminance
		ctx.logf("grading", "found max luminance: %g nits", maxLuminance)
	} else {
		ctx.logf("grading", "using requested max luminance: %g nits", *outLuminance)
	}

	if *outGamma == 0 && *outLuminance > 0 {
		luminanceScale := srcLuminance / *outLuminance
		maxCode := dstDepth.maxCode()

		// 2.00 through 4.00 by 0.05
		const loInt, hiInt = 40, 80
		gammas := make([]float64, hiInt-loInt+1)
		errs := make([]float64, len(gammas))
		for i := range gammas {
			gammas[i] = float64(loInt+i) / 20
		}

		ctx.logf("grading", "using %d workers to find best gamma", ctx.jobs(taskCount))
		parallelFor(ctx.jobs(taskCount), len(gammas), func(start, count int) {
			for i := start; i < start+count; i++ {
				errs[i] = gammaErrorTerm(gammas[i], pixels, pixelCount, maxCode, luminanceScale)
			}
		})

		// best starts at the first candidate so a pathological NaN error
		// term can never leave the choice undefined
		best := 0
		for i := 1; i < len(errs); i++ {
			if errs[i] < errs[best] {
				best = i
			}
		}
		*outGamma = gammas[best]
	}
}
