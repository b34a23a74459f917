package iccprofile

import (
	"errors"
	"unicode/utf16"
)

var (
	ErrMissingTag     = errors.New("iccprofile: missing tag")
	ErrUnexpectedType = errors.New("iccprofile: unexpected tag data type")
	ErrInvalidTagData = errors.New("iccprofile: invalid tag data")
)

// MultiLocalizedUnicode represents a localized Unicode string tag ("mluc").
type MultiLocalizedUnicode []LocalizedUnicode

// LocalizedUnicode is a single language/country/value entry.
type LocalizedUnicode struct {
	Language string
	Country  string
	Value    string
}

func decodeText(data []byte) (string, error) {
	if err := checkType("text", data); err != nil {
		return "", err
	}
	if len(data) < 8 {
		return "", ErrInvalidTagData
	}
	start, end := 8, len(data)
	for end-1 > start && data[end-1] == 0 {
		end--
	}
	return string(data[start:end]), nil
}

func decodeMLUC(data []byte) (MultiLocalizedUnicode, error) {
	if err := checkType("mluc", data); err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, ErrInvalidTagData
	}
	n := getUint32(data, 8)
	if n == 0 || uint64(len(data)) < 16+12*uint64(n) {
		return nil, ErrInvalidTagData
	}
	res := make(MultiLocalizedUnicode, n)
	for i := range res {
		language := string(data[16+12*i : 16+12*i+2])
		country := string(data[16+12*i+2 : 16+12*i+4])
		length := getUint32(data, 16+12*i+4)
		offset := getUint32(data, 16+12*i+8)

		start := uint64(offset)
		end := start + uint64(length)
		if end > uint64(len(data)) || length&1 != 0 {
			return nil, ErrInvalidTagData
		}

		d16 := make([]uint16, length/2)
		for j := range d16 {
			d16[j] = uint16(data[start+2*uint64(j)])<<8 | uint16(data[start+2*uint64(j)+1])
		}
		res[i] = LocalizedUnicode{
			Language: language,
			Country:  country,
			Value:    string(utf16.Decode(d16)),
		}
	}
	return res, nil
}

// encodeMLUC encodes a single-entry multi-localized Unicode tag.
func encodeMLUC(lang, country, value string) []byte {
	runes := []rune(value)
	d16 := utf16.Encode(runes)
	buf := make([]byte, 28+2*len(d16))
	copy(buf[0:4], "mluc")
	putUint32(buf, 8, 1)  // number of records
	putUint32(buf, 12, 12) // record size
	copy(buf[16:18], lang)
	copy(buf[18:20], country)
	putUint32(buf, 20, uint32(2*len(d16)))
	putUint32(buf, 24, 28)
	for i, v := range d16 {
		putUint16(buf, 28+2*i, v)
	}
	return buf
}

func checkType(typeID string, data []byte) error {
	bb := []byte(typeID)
	for i, b := range bb {
		if i >= len(data) || data[i] != b {
			return ErrUnexpectedType
		}
	}
	return nil
}
