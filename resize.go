package colorist

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ResizeFilter selects the resampling kernel applied when a conversion
// includes a resize.
type ResizeFilter int

// Resampling filters.
const (
	FilterAuto ResizeFilter = iota
	FilterNearest
	FilterBilinear
	FilterCatmullRom
)

func (f ResizeFilter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterCatmullRom, FilterAuto:
		return "catmullrom"
	default:
		return "unknown"
	}
}

func (f ResizeFilter) scaler() draw.Scaler {
	switch f {
	case FilterNearest:
		return draw.NearestNeighbor
	case FilterBilinear:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// resample scales a srcW x srcH linear RGBA float buffer to dstW x dstH.
// Linear HDR values may exceed 1.0, so the buffer is normalized by its
// peak before being handed to the 16-bit resampler and denormalized
// afterwards.
func resample(src []float64, srcW, srcH, dstW, dstH int, filter ResizeFilter) []float64 {
	peak := 1.0
	for i := 0; i < srcW*srcH*4; i++ {
		if src[i] > peak {
			peak = src[i]
		}
	}

	srcImg := image.NewNRGBA64(image.Rect(0, 0, srcW, srcH))
	for y := 0; y < srcH; y++ {
		for x := 0; x < srcW; x++ {
			p := src[(y*srcW+x)*4:]
			o := srcImg.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				code := uint16(math.Floor(clamp01(p[c]/peak)*65535 + 0.5))
				srcImg.Pix[o+c*2] = byte(code >> 8)
				srcImg.Pix[o+c*2+1] = byte(code)
			}
		}
	}

	dstImg := image.NewNRGBA64(image.Rect(0, 0, dstW, dstH))
	filter.scaler().Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)

	dst := make([]float64, dstW*dstH*4)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			o := dstImg.PixOffset(x, y)
			p := dst[(y*dstW+x)*4:]
			for c := 0; c < 4; c++ {
				code := uint16(dstImg.Pix[o+c*2])<<8 | uint16(dstImg.Pix[o+c*2+1])
				p[c] = float64(code) / 65535 * peak
			}
		}
	}
	return dst
}
