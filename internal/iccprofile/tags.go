package iccprofile

// TagType identifies a tag in an ICC profile.
type TagType uint32

// Some tag types defined in the ICC specification.
const (
	ProfileDescription  TagType = 0x64657363 // "desc"
	Copyright           TagType = 0x63707274 // "cprt"
	ChromaticAdaptation TagType = 0x63686164 // "chad"

	// Matrix/TRC profile tags.
	RedMatrixColumn   TagType = 0x7258595A // "rXYZ"
	GreenMatrixColumn TagType = 0x6758595A // "gXYZ"
	BlueMatrixColumn  TagType = 0x6258595A // "bXYZ"
	RedTRC            TagType = 0x72545243 // "rTRC"
	GreenTRC          TagType = 0x67545243 // "gTRC"
	BlueTRC           TagType = 0x62545243 // "bTRC"
	GrayTRC           TagType = 0x6B545243 // "kTRC"
	MediaWhitePoint   TagType = 0x77747074 // "wtpt"

	// Luminance tag (cd/m^2 of media white, XYZ-encoded with Y = nits).
	Luminance TagType = 0x6C756d69 // "lumi"

	// LUT-based profile tags. Their presence marks a profile shape the
	// cmm engine refuses; only the signatures are needed for detection.
	AToB0 TagType = 0x41324230 // "A2B0" Perceptual
	AToB1 TagType = 0x41324231 // "A2B1" Relative Colorimetric
	AToB2 TagType = 0x41324232 // "A2B2" Saturation
	BToA0 TagType = 0x42324130 // "B2A0" Perceptual
	BToA1 TagType = 0x42324131 // "B2A1" Relative Colorimetric
	BToA2 TagType = 0x42324132 // "B2A2" Saturation
)

func (t TagType) String() string {
	bb := []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	return string(bb)
}

// Copyright returns the contents of the copyright tag, if present.
func (p *Profile) Copyright() (MultiLocalizedUnicode, error) {
	tag, ok := p.TagData[Copyright]
	if !ok {
		return nil, ErrMissingTag
	}
	val, err := decodeMLUC(tag)
	if err != ErrUnexpectedType {
		return val, err
	}
	s, err := decodeText(tag)
	if err != nil {
		return nil, err
	}
	return MultiLocalizedUnicode{{Language: "en", Country: "US", Value: s}}, nil
}

// Description returns the contents of the profile description tag.
func (p *Profile) Description() (string, error) {
	tag, ok := p.TagData[ProfileDescription]
	if !ok {
		return "", ErrMissingTag
	}
	if mluc, err := decodeMLUC(tag); err == nil && len(mluc) > 0 {
		return mluc[0].Value, nil
	}
	return decodeText(tag)
}

// LuminanceNits returns the profile's luminance tag in cd/m^2, if present.
func (p *Profile) LuminanceNits() (float64, bool) {
	tag, ok := p.TagData[Luminance]
	if !ok {
		return 0, false
	}
	xyz, err := parseXYZTag(tag)
	if err != nil {
		return 0, false
	}
	return xyz[1], true
}

// WhitePointXYZ returns the media white point tag, falling back to D50.
func (p *Profile) WhitePointXYZ() [3]float64 {
	tag, ok := p.TagData[MediaWhitePoint]
	if !ok {
		return D50WhitePoint
	}
	xyz, err := parseXYZTag(tag)
	if err != nil {
		return D50WhitePoint
	}
	return xyz
}

func parseXYZTag(data []byte) ([3]float64, error) {
	if len(data) < 20 {
		return [3]float64{}, ErrInvalidTagData
	}
	if string(data[0:4]) != "XYZ " {
		return [3]float64{}, ErrUnexpectedType
	}
	return [3]float64{
		getS15Fixed16(data, 8),
		getS15Fixed16(data, 12),
		getS15Fixed16(data, 16),
	}, nil
}

func encodeXYZTag(v [3]float64) []byte {
	buf := make([]byte, 20)
	copy(buf[0:4], "XYZ ")
	putS15Fixed16(buf, 8, v[0])
	putS15Fixed16(buf, 12, v[1])
	putS15Fixed16(buf, 16, v[2])
	return buf
}
