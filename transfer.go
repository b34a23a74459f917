package colorist

import "math"

// CurveKind identifies which parametric transfer function a TransferCurve
// uses.
type CurveKind int

// Transfer function kinds.
const (
	CurveGamma CurveKind = iota
	CurveHLG
	CurvePQ
)

// TransferCurve is a tagged transfer function: a simple power-law Gamma,
// or one of the two HDR curves (HLG, PQ). Gamma is only meaningful for
// CurveGamma.
type TransferCurve struct {
	Kind  CurveKind
	Gamma float64
}

// PQ (SMPTE ST.2084) constants.
const (
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
)

// HLG (Hybrid Log-Gamma) constants.
const (
	hlgA = 0.17883277
	hlgB = 1 - 4*hlgA
)

var hlgC = 0.5 - hlgA*math.Log(4*hlgA)

// pqPeakLuminance is the absolute luminance of PQ signal 1.0, fixed at
// 10000 cd/m^2 by SMPTE ST.2084 itself.
const pqPeakLuminance = 10000.0

// curveScale is the curve's implicit scale: the factor that converts the
// curve's nominal "1.0" of linear light into multiples of the profile's
// luminance. Gamma and HLG are relative encodings already scaled by the
// profile's luminance, so their scale is 1.0; PQ is absolute, so its
// scale is whatever maps the profile's luminance onto the fixed
// 10000-nit peak.
func curveScale(c TransferCurve, luminance float64) float64 {
	if c.Kind == CurvePQ && luminance > 0 {
		return pqPeakLuminance / luminance
	}
	return 1.0
}

// eotf converts a normalized signal x in [0,1] to linear light, per the
// curve's electro-optical transfer function. peakLuminance is only used
// by HLG.
func eotf(c TransferCurve, peakLuminance, x float64) float64 {
	switch c.Kind {
	case CurveGamma:
		return gammaEOTF(x, c.Gamma)
	case CurvePQ:
		return pqEOTF(x)
	case CurveHLG:
		return hlgEOTF(x, peakLuminance)
	default:
		return x
	}
}

// oetf converts linear light y to a normalized signal, the inverse of
// eotf.
func oetf(c TransferCurve, peakLuminance, y float64) float64 {
	switch c.Kind {
	case CurveGamma:
		return gammaOETF(y, c.Gamma)
	case CurvePQ:
		return pqOETF(y)
	case CurveHLG:
		return hlgOETF(y, peakLuminance)
	default:
		return y
	}
}

func gammaEOTF(x, gamma float64) float64 {
	if x < 0 {
		x = 0
	}
	return math.Pow(x, gamma)
}

func gammaOETF(y, gamma float64) float64 {
	if y < 0 {
		y = 0
	}
	return math.Pow(y, 1/gamma)
}

func pqEOTF(n float64) float64 {
	np := math.Pow(n, 1/pqM2)
	num := np - pqC1
	if num < 0 {
		num = 0
	}
	den := pqC2 - pqC3*np
	return math.Pow(num/den, 1/pqM1)
}

func pqOETF(l float64) float64 {
	lm := math.Pow(l, pqM1)
	return math.Pow((pqC1+pqC2*lm)/(1+pqC3*lm), pqM2)
}

func hlgExponent(peakLuminance float64) float64 {
	return 1.2 + 0.42*math.Log10(peakLuminance/1000)
}

func hlgEOTF(n, peakLuminance float64) float64 {
	var base float64
	if n < 0.5 {
		base = n * n / 3
	} else {
		base = (math.Exp((n-hlgC)/hlgA) + hlgB) / 12
	}
	return math.Pow(base, hlgExponent(peakLuminance))
}

func hlgOETF(l, peakLuminance float64) float64 {
	exponent := hlgExponent(peakLuminance)
	n := math.Pow(l, 1/exponent)
	if n <= 1.0/12.0 {
		return math.Sqrt(3 * n)
	}
	return hlgA*math.Log(12*n-hlgB) + hlgC
}

// diffuseWhite returns the nits of HLG "diffuse white" (signal 0.75) for
// a given peak luminance.
func diffuseWhite(peakLuminance float64) float64 {
	base := (math.Exp((0.75-hlgC)/hlgA) + hlgB) / 12
	return peakLuminance * math.Pow(base, hlgExponent(peakLuminance))
}

// calcHLGPeak solves for the smallest integer peak luminance in [1,
// 100000] whose diffuse white level is at least targetNits.
func calcHLGPeak(targetNits float64) float64 {
	lo, hi := 1, 100000
	for lo < hi {
		mid := (lo + hi) / 2
		if diffuseWhite(float64(mid)) >= targetNits {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return float64(lo)
}
