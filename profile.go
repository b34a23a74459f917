package colorist

import (
	"os"

	"go.colorist.dev/colorist/internal/iccprofile"
)

// Profile describes a colour space: its primaries, transfer curve, and
// optional luminance. A Profile backed by an ICC profile (for example one
// with an arbitrary curve) carries its encoded bytes in iccData and is
// delegated to the internal/cmm external CMM instead; that engine rejects
// LUT-based profiles.
//
// The zero Profile is not meaningful; use [NewProfile] or [ReadProfile].
// A nil *Profile, where accepted, denotes the identity/no-op profile
// (matrix = I, no transfer function) — the "NULL profile" of the
// original design.
type Profile struct {
	Primaries     ChromaticityPrimaries
	Curve         TransferCurve
	LuminanceNits float64 // 0 = unspecified
	Description   string
	Copyright     string

	// isPCS marks the sentinel profile for the Profile Connection Space:
	// no primaries, no curve, used as a Transform endpoint when bridging
	// through XYZ directly.
	isPCS bool

	// iccData, when non-nil, is the encoded ICC profile backing this
	// Profile. Its presence means the profile must be handled by the
	// external CMM: Primaries/Curve/LuminanceNits above are then best-
	// effort summaries only (read back from the profile's matrix/TRC
	// tags when representable, zero otherwise).
	iccData []byte
}

// PCSProfile is the sentinel Profile Connection Space profile: no
// primaries, no curve.
var PCSProfile = Profile{isPCS: true}

// NewProfile creates a built-in-representable profile: one whose curve is
// Gamma, HLG, or PQ, so the core's own colour math can process it without
// delegating to the external CMM. This is the "create" operation of the
// Profile interface.
func NewProfile(primaries ChromaticityPrimaries, curve TransferCurve, luminanceNits float64, description string) Profile {
	return Profile{
		Primaries:     primaries,
		Curve:         curve,
		LuminanceNits: luminanceNits,
		Description:   description,
	}
}

// ReadProfile loads a binary ICC profile from disk. The result always
// delegates to the external CMM (its curve may not be Gamma/HLG/PQ); see
// [Profile.UsesBuiltinCMM].
func ReadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, wrapError(InvalidProfileOverride, "reading profile file", err)
	}
	return DecodeProfile(data)
}

// DecodeProfile parses raw ICC profile bytes into a Profile. Like
// [ReadProfile], the result delegates to the external CMM.
func DecodeProfile(data []byte) (Profile, error) {
	icc, err := iccprofile.Decode(data)
	if err != nil {
		return Profile{}, wrapError(InvalidProfileOverride, "decoding ICC profile", err)
	}

	p := Profile{iccData: data}
	if nits, ok := icc.LuminanceNits(); ok {
		p.LuminanceNits = nits
	}
	if desc, err := icc.Description(); err == nil {
		p.Description = desc
	}

	// Best-effort structural summary for matrix/TRC profiles: primaries
	// from the matrix columns (white = column sum), curve only when all
	// three TRCs are the same simple power gamma.
	r, rok := icc.XYZTag(iccprofile.RedMatrixColumn)
	g, gok := icc.XYZTag(iccprofile.GreenMatrixColumn)
	b, bok := icc.XYZTag(iccprofile.BlueMatrixColumn)
	if rok && gok && bok {
		white := [3]float64{r[0] + g[0] + b[0], r[1] + g[1] + b[1], r[2] + g[2] + b[2]}
		p.Primaries = ChromaticityPrimaries{
			RX: chromaX(r), RY: chromaY(r),
			GX: chromaX(g), GY: chromaY(g),
			BX: chromaX(b), BY: chromaY(b),
			WX: chromaX(white), WY: chromaY(white),
		}
	}
	rg, rgok := iccprofile.SimpleGamma(icc.TagData[iccprofile.RedTRC])
	gg, ggok := iccprofile.SimpleGamma(icc.TagData[iccprofile.GreenTRC])
	bg, bgok := iccprofile.SimpleGamma(icc.TagData[iccprofile.BlueTRC])
	if rgok && ggok && bgok && rg == gg && gg == bg {
		p.Curve = TransferCurve{Kind: CurveGamma, Gamma: rg}
	}
	return p, nil
}

func chromaX(xyz [3]float64) float64 {
	sum := xyz[0] + xyz[1] + xyz[2]
	if sum <= 0 {
		return 0
	}
	return xyz[0] / sum
}

func chromaY(xyz [3]float64) float64 {
	sum := xyz[0] + xyz[1] + xyz[2]
	if sum <= 0 {
		return 0
	}
	return xyz[1] / sum
}

// SRGBProfile returns the standard sRGB display profile. Its piecewise
// parametric curve cannot be modelled by the built-in engine, so
// transforms involving it delegate to the external CMM.
func SRGBProfile() Profile {
	icc := iccprofile.NewSRGBProfile(rgbToXYZ(BT709Primaries), 0)
	data, err := icc.Encode()
	if err != nil {
		panic("colorist: encoding built-in sRGB profile: " + err.Error())
	}
	p, err := DecodeProfile(data)
	if err != nil {
		panic("colorist: decoding built-in sRGB profile: " + err.Error())
	}
	return p
}

// Clone returns an independent copy of p. Because Profile carries no
// externally-owned resources in this implementation, cloning is a plain
// value copy; it exists to match the Profile interface's clone/destroy
// pair (destroy is a no-op here — the garbage collector reclaims it).
func (p Profile) Clone() Profile {
	clone := p
	if p.iccData != nil {
		clone.iccData = append([]byte(nil), p.iccData...)
	}
	return clone
}

// Query returns the profile's structural fields, the "query" operation of
// the Profile interface.
func (p Profile) Query() (ChromaticityPrimaries, TransferCurve, float64) {
	return p.Primaries, p.Curve, p.LuminanceNits
}

// UsesBuiltinCMM reports whether the built-in colour-math engine can
// process this profile: it must have no backing ICC bytes (i.e. it was
// built with [NewProfile], not read from a file).
func (p Profile) UsesBuiltinCMM() bool {
	return p.iccData == nil
}

// PrimariesMatch reports whether a and b have chromaticity coordinates
// within primariesEpsilon of one another.
func PrimariesMatch(a, b Profile) bool {
	return primariesMatch(a.Primaries, b.Primaries)
}

// Matches reports full semantic equality between two profiles: same
// primaries, same curve, same luminance. Used to bypass colour math
// entirely when source and destination are identical.
func Matches(a, b Profile) bool {
	if a.isPCS != b.isPCS {
		return false
	}
	if a.iccData != nil || b.iccData != nil {
		return string(a.iccData) == string(b.iccData)
	}
	return PrimariesMatch(a, b) &&
		a.Curve == b.Curve &&
		a.LuminanceNits == b.LuminanceNits
}

// SetLocalizedTag sets a localized text tag ("cprt" for copyright) on the
// profile. For a built-in profile this just sets the Copyright field; for
// an ICC-backed profile it rewrites the embedded tag.
func (p Profile) SetLocalizedTag(tag, lang, country, text string) (Profile, error) {
	out := p.Clone()
	if tag == "cprt" {
		out.Copyright = text
	}
	if out.iccData == nil {
		return out, nil
	}

	if len(tag) != 4 {
		return Profile{}, newErrorf(InvalidDestination, "invalid tag signature %q", tag)
	}
	icc, err := iccprofile.Decode(out.iccData)
	if err != nil {
		return Profile{}, wrapError(InvalidDestination, "decoding profile for tag update", err)
	}
	tagType := iccprofile.TagType(uint32(tag[0])<<24 | uint32(tag[1])<<16 | uint32(tag[2])<<8 | uint32(tag[3]))
	icc.SetLocalizedTag(tagType, lang, country, text)
	encoded, err := icc.Encode()
	if err != nil {
		return Profile{}, wrapError(InvalidDestination, "re-encoding profile", err)
	}
	out.iccData = encoded
	return out, nil
}

// iccBytes returns the encoded ICC representation the external CMM
// consumes, synthesizing matrix/TRC bytes on the fly for a
// built-in-representable profile that a caller wants to push through the
// external engine anyway (e.g. to bridge with an ICC-backed profile on
// the other side of a Transform). HLG/PQ curves have no closed-form ICC
// encoding here and degrade to gamma 1.0.
func (p Profile) iccBytes() ([]byte, error) {
	if p.iccData != nil {
		return p.iccData, nil
	}
	matrix := rgbToXYZ(p.Primaries)
	gamma := p.Curve.Gamma
	if p.Curve.Kind != CurveGamma || gamma <= 0 {
		gamma = 1.0
	}
	icc := iccprofile.NewMatrixTRCProfile(matrix, gamma, p.LuminanceNits, p.Description)
	encoded, err := icc.Encode()
	if err != nil {
		return nil, wrapError(InvalidDestination, "synthesizing ICC profile", err)
	}
	return encoded, nil
}
