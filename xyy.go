package colorist

// xyzToXyY decomposes an XYZ triple into chromaticity (x,y) and luminance
// Y, using whiteX/whiteY as the fallback chromaticity when X+Y+Z is
// non-positive.
func xyzToXyY(xyz [3]float64, whiteX, whiteY float64) (x, y, Y float64) {
	sum := xyz[0] + xyz[1] + xyz[2]
	if sum <= 0 {
		return whiteX, whiteY, 0
	}
	return xyz[0] / sum, xyz[1] / sum, xyz[1]
}

// xyYToXYZ recomposes an XYZ triple from chromaticity (x,y) and
// luminance Y. Y <= 0 maps to black.
func xyYToXYZ(x, y, Y float64) [3]float64 {
	if Y <= 0 {
		return [3]float64{0, 0, 0}
	}
	return [3]float64{
		x * Y / y,
		Y,
		(1 - x - y) * Y / y,
	}
}
