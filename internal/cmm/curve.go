// Package cmm is the built-in stand-in for an external colour-management
// module (CMM). It decodes the matrix/TRC and gray/TRC ICC profile
// shapes that the colorist core's built-in engine cannot model in closed
// form (arbitrary sampled or parametric curves, non-Gamma/HLG/PQ TRCs)
// and exposes them through the Factory/Profile/Transform shape, then
// through a create/doTransform/delete handle matching the
// colour-management core's documented external CMM contract.
// Printer-class LUT profiles are rejected; nothing in this pipeline
// produces them.
package cmm

import (
	"math"
	"sort"

	"go.colorist.dev/colorist/internal/iccprofile"
)

// curve represents a 1D tone reproduction curve (ICC curveType or
// parametricCurveType), decoded from raw tag bytes.
//
// Precedence when evaluating: Params > Table > Gamma.
type curve struct {
	Gamma float64

	FuncType int
	Params   []float64

	Table []uint16

	inverseTable []float64
}

func decodeCurve(data []byte) (*curve, error) {
	if len(data) < 8 {
		return nil, iccprofile.ErrInvalidTagData
	}
	switch string(data[0:4]) {
	case "curv":
		return decodeCurveType(data)
	case "para":
		return decodeParametricCurve(data)
	default:
		return nil, iccprofile.ErrUnexpectedType
	}
}

func decodeCurveType(data []byte) (*curve, error) {
	if len(data) < 12 {
		return nil, iccprofile.ErrInvalidTagData
	}
	n := getUint32(data, 8)
	if n == 0 {
		return &curve{Gamma: 1.0}, nil
	}
	if n == 1 {
		if len(data) < 14 {
			return nil, iccprofile.ErrInvalidTagData
		}
		gamma := float64(getUint16(data, 12)) / 256.0
		return &curve{Gamma: gamma}, nil
	}
	if uint64(len(data)) < 12+2*uint64(n) {
		return nil, iccprofile.ErrInvalidTagData
	}
	table := make([]uint16, n)
	for i := range table {
		table[i] = getUint16(data, 12+i*2)
	}
	return &curve{Table: table}, nil
}

func decodeParametricCurve(data []byte) (*curve, error) {
	if len(data) < 12 {
		return nil, iccprofile.ErrInvalidTagData
	}
	funcType := int(getUint16(data, 8))

	var numParams int
	switch funcType {
	case 0:
		numParams = 1
	case 1:
		numParams = 3
	case 2:
		numParams = 4
	case 3:
		numParams = 5
	case 4:
		numParams = 7
	default:
		return nil, iccprofile.ErrInvalidTagData
	}
	if len(data) < 12+numParams*4 {
		return nil, iccprofile.ErrInvalidTagData
	}
	params := make([]float64, numParams)
	for i := range params {
		params[i] = getS15Fixed16(data, 12+i*4)
	}
	return &curve{FuncType: funcType, Params: params}, nil
}

// Evaluate computes the output value for an input in [0, 1], clamped.
func (c *curve) Evaluate(x float64) float64 {
	x = clamp(x, 0, 1)
	var y float64
	switch {
	case c.Gamma != 0 && c.Params == nil && c.Table == nil:
		if x <= 0 {
			y = 0
		} else {
			y = math.Pow(x, c.Gamma)
		}
	case c.Params != nil:
		y = c.evaluateParametric(x)
	case c.Table != nil:
		y = c.evaluateSampled(x)
	default:
		y = x
	}
	return clamp(y, 0, 1)
}

func (c *curve) evaluateParametric(x float64) float64 {
	g := c.Params[0]
	switch c.FuncType {
	case 0:
		if x <= 0 {
			return 0
		}
		return math.Pow(x, g)
	case 1:
		a, b := c.Params[1], c.Params[2]
		if x >= -b/a {
			if v := a*x + b; v > 0 {
				return math.Pow(v, g)
			}
		}
		return 0
	case 2:
		a, b, cc := c.Params[1], c.Params[2], c.Params[3]
		if x >= -b/a {
			if v := a*x + b; v > 0 {
				return math.Pow(v, g) + cc
			}
		}
		return cc
	case 3:
		a, b, cc, d := c.Params[1], c.Params[2], c.Params[3], c.Params[4]
		if x >= d {
			if v := a*x + b; v > 0 {
				return math.Pow(v, g)
			}
			return 0
		}
		return cc * x
	case 4:
		a, b, cc, d, e, f := c.Params[1], c.Params[2], c.Params[3], c.Params[4], c.Params[5], c.Params[6]
		if x >= d {
			if v := a*x + b; v > 0 {
				return math.Pow(v, g) + e
			}
			return e
		}
		return cc*x + f
	}
	return x
}

func (c *curve) evaluateSampled(x float64) float64 {
	n := len(c.Table)
	if n == 0 {
		return x
	}
	if n == 1 {
		return float64(c.Table[0]) / 65535.0
	}
	pos := x * float64(n-1)
	idx := int(pos)
	if idx < 0 {
		return float64(c.Table[0]) / 65535.0
	}
	if idx >= n-1 {
		return float64(c.Table[n-1]) / 65535.0
	}
	frac := pos - float64(idx)
	v0 := float64(c.Table[idx]) / 65535.0
	v1 := float64(c.Table[idx+1]) / 65535.0
	return v0 + frac*(v1-v0)
}

// Invert computes the input for an output in [0, 1].
func (c *curve) Invert(y float64) float64 {
	y = clamp(y, 0, 1)
	switch {
	case c.Gamma != 0 && c.Params == nil && c.Table == nil:
		if y <= 0 {
			return 0
		}
		return math.Pow(y, 1.0/c.Gamma)
	case c.Params != nil:
		return c.invertParametric(y)
	case c.Table != nil:
		return c.invertSampled(y)
	default:
		return y
	}
}

func (c *curve) invertParametric(y float64) float64 {
	g := c.Params[0]
	if g == 0 {
		return 0
	}
	invG := 1.0 / g
	switch c.FuncType {
	case 0:
		if y <= 0 {
			return 0
		}
		return math.Pow(y, invG)
	case 1:
		a, b := c.Params[1], c.Params[2]
		if a == 0 {
			return 0
		}
		if y <= 0 {
			return -b / a
		}
		return (math.Pow(y, invG) - b) / a
	case 2:
		a, b, cc := c.Params[1], c.Params[2], c.Params[3]
		if a == 0 {
			return 0
		}
		yc := y - cc
		if yc <= 0 {
			return -b / a
		}
		return (math.Pow(yc, invG) - b) / a
	case 3:
		a, b, cc, d := c.Params[1], c.Params[2], c.Params[3], c.Params[4]
		yThreshold := cc * d
		if y < yThreshold {
			if cc == 0 {
				return 0
			}
			return y / cc
		}
		if a == 0 || y <= 0 {
			return d
		}
		return (math.Pow(y, invG) - b) / a
	case 4:
		a, b, cc, d, e, f := c.Params[1], c.Params[2], c.Params[3], c.Params[4], c.Params[5], c.Params[6]
		yThreshold := cc*d + f
		if y < yThreshold {
			if cc == 0 {
				return 0
			}
			return (y - f) / cc
		}
		ye := y - e
		if a == 0 || ye <= 0 {
			return d
		}
		return (math.Pow(ye, invG) - b) / a
	}
	return y
}

func (c *curve) invertSampled(y float64) float64 {
	if c.inverseTable == nil {
		c.buildInverseTable()
	}
	n := len(c.inverseTable)
	if n == 0 {
		return y
	}
	pos := y * float64(n-1)
	idx := int(pos)
	if idx < 0 {
		return c.inverseTable[0]
	}
	if idx >= n-1 {
		return c.inverseTable[n-1]
	}
	frac := pos - float64(idx)
	return c.inverseTable[idx] + frac*(c.inverseTable[idx+1]-c.inverseTable[idx])
}

func (c *curve) buildInverseTable() {
	const invSize = 4096
	c.inverseTable = make([]float64, invSize)

	n := len(c.Table)
	if n == 0 {
		for i := range c.inverseTable {
			c.inverseTable[i] = float64(i) / float64(invSize-1)
		}
		return
	}
	for i := range c.inverseTable {
		target := uint16(float64(i) / float64(invSize-1) * 65535.0)
		idx := sort.Search(n, func(j int) bool { return c.Table[j] >= target })
		switch {
		case idx == 0:
			c.inverseTable[i] = 0
		case idx >= n:
			c.inverseTable[i] = 1
		default:
			v0 := float64(c.Table[idx-1])
			v1 := float64(c.Table[idx])
			if v1 == v0 {
				c.inverseTable[i] = float64(idx) / float64(n-1)
			} else {
				frac := (float64(target) - v0) / (v1 - v0)
				c.inverseTable[i] = (float64(idx-1) + frac) / float64(n-1)
			}
		}
	}
}

func getUint16(data []byte, offset int) uint16 {
	return uint16(data[offset])<<8 | uint16(data[offset+1])
}

func getUint32(data []byte, offset int) uint32 {
	return uint32(data[offset])<<24 | uint32(data[offset+1])<<16 | uint32(data[offset+2])<<8 | uint32(data[offset+3])
}

func getS15Fixed16(data []byte, offset int) float64 {
	raw := int32(getUint32(data, offset))
	return float64(raw) / 65536.0
}

func putUint16(data []byte, offset int, value uint16) {
	data[offset] = byte(value >> 8)
	data[offset+1] = byte(value)
}

func putUint32(data []byte, offset int, value uint32) {
	data[offset] = byte(value >> 24)
	data[offset+1] = byte(value >> 16)
	data[offset+2] = byte(value >> 8)
	data[offset+3] = byte(value)
}

func putS15Fixed16(data []byte, offset int, value float64) {
	raw := int32(value * 65536.0)
	putUint32(data, offset, uint32(raw))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
