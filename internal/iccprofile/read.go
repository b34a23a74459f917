package iccprofile

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"time"
)

// Decode decodes an ICC profile from binary data. The function takes over
// ownership of data: Decode's caller must not mutate it afterwards, since
// tag payloads are returned as sub-slices.
func Decode(data []byte) (*Profile, error) {
	if len(data) < 128+4 {
		return nil, invalidProfile(0, "profile is too short")
	}
	if string(data[36:40]) != "acsp" {
		return nil, invalidProfile(36, "missing 'acsp' signature")
	}

	numTags := getUint32(data, 128)
	maxNumTags := uint((len(data) - 128 - 4) / 12)
	if uint(numTags) > maxNumTags {
		return nil, invalidProfile(128, "too many tags")
	}

	p := &Profile{
		PreferredCMMType:   getUint32(data, 4),
		Version:            Version(getUint32(data, 8)),
		Class:              ProfileClass(getUint32(data, 12)),
		ColorSpace:         ColorSpace(getUint32(data, 16)),
		PCS:                ColorSpace(getUint32(data, 20)),
		CreationDate:       getDateTime(data, 24),
		PrimaryPlatform:    getUint32(data, 40),
		Flags:              getUint32(data, 44),
		DeviceManufacturer: getUint32(data, 48),
		DeviceModel:        getUint32(data, 52),
		DeviceAttributes:   getUint64(data, 56),
		RenderingIntent:    RenderingIntent(getUint32(data, 64)),
		Creator:            getUint32(data, 80),

		TagData: make(map[TagType][]byte),
	}

	if !isZero(data[84:100]) {
		var givenHash [16]byte
		copy(givenHash[:], data[84:100])

		// the ID is computed over the whole profile with flags, rendering
		// intent, and the ID field itself zeroed
		scratch := make([]byte, len(data))
		copy(scratch, data)
		putUint32(scratch, 44, 0)
		putUint32(scratch, 64, 0)
		for i := 84; i < 100; i++ {
			scratch[i] = 0
		}
		computedHash := md5.Sum(scratch)
		if bytes.Equal(computedHash[:], givenHash[:]) {
			p.CheckSum = CheckSumValid
		} else {
			p.CheckSum = CheckSumInvalid
		}
	}

	minTagOffset := int64(128 + 4 + int(numTags)*12)
	for i := 0; i < int(numTags); i++ {
		offset := 128 + 4 + i*12
		tagType := TagType(getUint32(data, offset))
		tagOffset := getUint32(data, offset+4)
		tagSize := getUint32(data, offset+8)
		if tagSize < 4 {
			return nil, invalidProfile(offset+8, "tag is too small")
		} else if tagSize > 0xFFFFFFFC {
			return nil, invalidProfile(offset+8, "tag is too large")
		}

		start := int64(tagOffset)
		end := start + int64(tagSize)
		if start < minTagOffset || end > int64(len(data)) {
			return nil, invalidProfile(offset, "tag is out of bounds")
		}
		p.TagData[tagType] = data[start:end]
	}

	if p.Version == 0 {
		p.Version = CurrentVersion
	}

	return p, nil
}

// ReadFile is a convenience wrapper for loading a profile from the
// filesystem; the colorist `read(path)` collaborator operation.
func ReadFile(readAll func(path string) ([]byte, error), path string) (*Profile, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

func getUint16(data []byte, offset int) uint16 {
	return uint16(data[offset])<<8 | uint16(data[offset+1])
}

func getUint32(data []byte, offset int) uint32 {
	return uint32(data[offset])<<24 | uint32(data[offset+1])<<16 | uint32(data[offset+2])<<8 | uint32(data[offset+3])
}

func getUint64(data []byte, offset int) uint64 {
	return uint64(data[offset])<<56 | uint64(data[offset+1])<<48 | uint64(data[offset+2])<<40 | uint64(data[offset+3])<<32 |
		uint64(data[offset+4])<<24 | uint64(data[offset+5])<<16 | uint64(data[offset+6])<<8 | uint64(data[offset+7])
}

func getDateTime(data []byte, offset int) time.Time {
	year := int(data[offset])<<8 | int(data[offset+1])
	month := int(data[offset+2])<<8 | int(data[offset+3])
	day := int(data[offset+4])<<8 | int(data[offset+5])
	hour := int(data[offset+6])<<8 | int(data[offset+7])
	minute := int(data[offset+8])<<8 | int(data[offset+9])
	second := int(data[offset+10])<<8 | int(data[offset+11])
	if year < 1970 || year > 3000 ||
		month < 1 || month > 12 ||
		day < 1 || day > 31 ||
		hour > 23 || minute > 59 || second > 61 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

func getS15Fixed16(data []byte, offset int) float64 {
	raw := int32(getUint32(data, offset))
	return float64(raw) / 65536.0
}

// InvalidProfileError indicates that an ICC profile contains invalid binary
// data and cannot be decoded.
type InvalidProfileError struct {
	Offset int
	Reason string
}

func invalidProfile(offset int, reason string) error {
	return &InvalidProfileError{Offset: offset, Reason: reason}
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("iccprofile: invalid profile (byte %d): %s", e.Offset, e.Reason)
}
