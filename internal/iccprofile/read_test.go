package iccprofile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDateTime(t *testing.T) {
	in := []byte{
		byte(2020 >> 8), byte(2020 & 0xFF),
		0, 1,
		0, 2,
		0, 4,
		0, 5,
		0, 6,
	}
	want := "2020-01-02 04:05:06 +0000 UTC"
	got := getDateTime(in, 0).String()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Profile{
		Version:         CurrentVersion,
		Class:           DisplayDeviceProfile,
		ColorSpace:      RGBSpace,
		PCS:             PCSXYZSpace,
		CreationDate:    time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		RenderingIntent: RelativeColorimetric,
		TagData: map[TagType][]byte{
			RedMatrixColumn:   encodeXYZTag([3]float64{0.4, 0.2, 0.02}),
			GreenMatrixColumn: encodeXYZTag([3]float64{0.3, 0.6, 0.1}),
			BlueMatrixColumn:  encodeXYZTag([3]float64{0.15, 0.2, 0.75}),
			RedTRC:            encodeGammaCurve(2.2),
			GreenTRC:          encodeGammaCurve(2.2),
			BlueTRC:           encodeGammaCurve(2.2),
			ProfileDescription: encodeMLUC("en", "US", "test profile"),
		},
	}

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	q, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if q.CheckSum != CheckSumValid {
		t.Errorf("checksum = %v, want valid", q.CheckSum)
	}
	if q.ColorSpace != RGBSpace || q.PCS != PCSXYZSpace {
		t.Errorf("colour spaces not round-tripped: %v / %v", q.ColorSpace, q.PCS)
	}
	desc, err := q.Description()
	if err != nil || desc != "test profile" {
		t.Errorf("description = %q, %v; want %q, nil", desc, err, "test profile")
	}

	got, err := parseXYZTag(q.TagData[RedMatrixColumn])
	if err != nil {
		t.Fatalf("parseXYZTag: %v", err)
	}
	// s15Fixed16 stores each component to within one 1/65536 step.
	want := [3]float64{0.4, 0.2, 0.02}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1.0/65536)); diff != "" {
		t.Errorf("red matrix column round-trip (-want +got):\n%s", diff)
	}
}

func TestNewMatrixTRCProfile(t *testing.T) {
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	p := NewMatrixTRCProfile(identity, 2.2, 100, "synthetic")
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	q, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	nits, ok := q.LuminanceNits()
	if !ok || nits != 100 {
		t.Errorf("luminance = %v, %v; want 100, true", nits, ok)
	}
}

func TestInvalidProfile(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error decoding truncated data")
	}
}
