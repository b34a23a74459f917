package iccprofile

import (
	"bytes"
	"crypto/md5"
	"errors"
	"sort"
	"time"
)

// ErrInvalidVersion is returned by [Profile.Encode] when Version is zero.
var ErrInvalidVersion = errors.New("iccprofile: version not set")

// Encode converts the profile to binary ICC format.
func (p *Profile) Encode() ([]byte, error) {
	if p.Version == 0 {
		return nil, ErrInvalidVersion
	}

	type tagInfo struct {
		tagType   TagType
		data      []byte
		start     uint32
		duplicate bool
	}
	var tags []tagInfo
	for tagType, data := range p.TagData {
		tags = append(tags, tagInfo{tagType: tagType, data: data})
	}
	sort.Slice(tags, func(i, j int) bool {
		if cmp := bytes.Compare(tags[i].data, tags[j].data); cmp != 0 {
			return cmp < 0
		}
		return tags[i].tagType < tags[j].tagType
	})
	pos := 128 + 4 + len(tags)*12
	for i := range tags {
		if i > 0 && bytes.Equal(tags[i].data, tags[i-1].data) {
			tags[i].start = tags[i-1].start
			tags[i].duplicate = true
		} else {
			tags[i].start = uint32(pos)
			pos += (len(tags[i].data) + 3) &^ 3
		}
	}

	buf := make([]byte, pos)
	putUint32(buf, 0, uint32(pos))
	putUint32(buf, 4, p.PreferredCMMType)
	putUint32(buf, 8, uint32(p.Version))
	putUint32(buf, 12, uint32(p.Class))
	putUint32(buf, 16, uint32(p.ColorSpace))
	putUint32(buf, 20, uint32(p.PCS))
	putDateTime(buf, 24, p.CreationDate)
	putUint32(buf, 36, 0x61637370) // "acsp"
	putUint32(buf, 40, p.PrimaryPlatform)
	putUint32(buf, 48, p.DeviceManufacturer)
	putUint32(buf, 52, p.DeviceModel)
	putUint64(buf, 56, p.DeviceAttributes)
	putS15Fixed16(buf, 68, D50WhitePoint[0])
	putS15Fixed16(buf, 72, D50WhitePoint[1])
	putS15Fixed16(buf, 76, D50WhitePoint[2])
	putUint32(buf, 80, p.Creator)

	putUint32(buf, 128, uint32(len(tags)))
	tagTable := 128 + 4
	for i, tag := range tags {
		putUint32(buf, tagTable+i*12, uint32(tag.tagType))
		putUint32(buf, tagTable+i*12+4, tag.start)
		putUint32(buf, tagTable+i*12+8, uint32(len(tag.data)))
		if !tag.duplicate {
			copy(buf[tag.start:], tag.data)
		}
	}

	if p.Version >= Version4_0_0 {
		h := md5.Sum(buf)
		copy(buf[84:], h[:])
	}

	putUint32(buf, 44, p.Flags)
	putUint32(buf, 64, uint32(p.RenderingIntent))

	return buf, nil
}

// SetLocalizedTag sets a "cprt"-style multi-localized Unicode tag. It
// implements the Profile interface's `setLocalizedTag` operation (spec §6).
func (p *Profile) SetLocalizedTag(tag TagType, lang, country, text string) {
	if p.TagData == nil {
		p.TagData = make(map[TagType][]byte)
	}
	p.TagData[tag] = encodeMLUC(lang, country, text)
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

func putUint64(data []byte, offset int, value uint64) {
	data[offset] = byte(value >> 56)
	data[offset+1] = byte(value >> 48)
	data[offset+2] = byte(value >> 40)
	data[offset+3] = byte(value >> 32)
	data[offset+4] = byte(value >> 24)
	data[offset+5] = byte(value >> 16)
	data[offset+6] = byte(value >> 8)
	data[offset+7] = byte(value)
}

func putS15Fixed16(data []byte, offset int, value float64) {
	raw := int32(value * 65536.0)
	putUint32(data, offset, uint32(raw))
}

func putDateTime(data []byte, offset int, t time.Time) {
	year := t.Year()
	data[offset] = byte(year >> 8)
	data[offset+1] = byte(year)
	data[offset+2] = 0
	data[offset+3] = byte(t.Month())
	data[offset+4] = 0
	data[offset+5] = byte(t.Day())
	data[offset+6] = 0
	data[offset+7] = byte(t.Hour())
	data[offset+8] = 0
	data[offset+9] = byte(t.Minute())
	data[offset+10] = 0
	data[offset+11] = byte(t.Second())
}
