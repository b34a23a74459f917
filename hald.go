package colorist

// HaldCLUT is a 3D colour lookup table of grid side dim, decoded from a
// square image of width n^3 for some n in [1, 32): the n^3 x n^3 image
// unrolls a (n^2)^3 grid of RGBA entries.
type HaldCLUT struct {
	dim  int
	data []float64 // dim^3 RGBA entries, normalized
}

// NewHaldCLUT validates and decodes a Hald CLUT image. The image must be
// square with a perfect-cube side.
func NewHaldCLUT(img *Image) (*HaldCLUT, error) {
	if img.Width != img.Height {
		return nil, newErrorf(InvalidHald, "hald CLUT isn't square [%dx%d]", img.Width, img.Height)
	}
	dim := 0
	for i := 1; i < 32; i++ {
		if i*i*i == img.Width {
			dim = i * i
			break
		}
	}
	if dim == 0 {
		return nil, newErrorf(InvalidHald, "hald CLUT dimensions aren't cubic [%dx%d]", img.Width, img.Height)
	}

	h := &HaldCLUT{
		dim:  dim,
		data: make([]float64, dim*dim*dim*4),
	}
	ch := img.channels()
	maxCode := img.Depth.maxCode()
	for i := 0; i < dim*dim*dim; i++ {
		src := img.Pixels[i*ch : i*ch+ch]
		dst := h.data[i*4 : i*4+4]
		for c := 0; c < ch; c++ {
			v := src[c]
			if img.Depth != Depth32 {
				v /= maxCode
			}
			dst[c] = v
		}
		if ch < 4 {
			dst[3] = 1
		}
	}
	return h, nil
}

// Dim returns the lookup grid side.
func (h *HaldCLUT) Dim() int { return h.dim }

// Lookup trilinearly interpolates src RGB (clamped to [0,1]) through the
// grid, writing RGB into dst. When both slices carry alpha it is copied
// through unchanged. dst and src may alias.
func (h *HaldCLUT) Lookup(dst, src []float64) {
	if h.dim == 1 {
		copy(dst[:3], h.data[:3])
		if len(dst) > 3 && len(src) > 3 {
			dst[3] = src[3]
		}
		return
	}

	var idx [3]int
	var frac [3]float64
	span := float64(h.dim - 1)
	for c := 0; c < 3; c++ {
		v := clamp01(src[c]) * span
		i := int(v)
		if i > h.dim-2 {
			i = h.dim - 2
		}
		idx[c] = i
		frac[c] = v - float64(i)
	}

	at := func(r, g, b int) []float64 {
		o := ((b*h.dim+g)*h.dim + r) * 4
		return h.data[o : o+3]
	}

	r, g, b := idx[0], idx[1], idx[2]
	fr, fg, fb := frac[0], frac[1], frac[2]
	var out [3]float64
	for c := 0; c < 3; c++ {
		c00 := at(r, g, b)[c]*(1-fr) + at(r+1, g, b)[c]*fr
		c10 := at(r, g+1, b)[c]*(1-fr) + at(r+1, g+1, b)[c]*fr
		c01 := at(r, g, b+1)[c]*(1-fr) + at(r+1, g, b+1)[c]*fr
		c11 := at(r, g+1, b+1)[c]*(1-fr) + at(r+1, g+1, b+1)[c]*fr
		c0 := c00*(1-fg) + c10*fg
		c1 := c01*(1-fg) + c11*fg
		out[c] = c0*(1-fb) + c1*fb
	}

	alpha := 1.0
	if len(src) > 3 {
		alpha = src[3]
	}
	copy(dst[:3], out[:])
	if len(dst) > 3 {
		dst[3] = alpha
	}
}
