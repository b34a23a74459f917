package cmm

import (
	"bytes"
	"errors"

	"go.colorist.dev/colorist/internal/iccprofile"
)

// RenderingIntent mirrors the ICC rendering intents used by createTransform.
type RenderingIntent int

// Rendering intents used by [Factory.NewTransform].
const (
	IntentPerceptual RenderingIntent = iota
	IntentRelativeColorimetric
	IntentSaturation
	IntentAbsoluteColorimetric
)

// Flags are the optional behaviours a createTransform caller can request.
type Flags uint32

// Flags recognized by [Factory.NewTransform].
const (
	FlagCopyAlpha Flags = 1 << iota
	FlagNoOptimize
)

// Profile is an opaque colour profile handle, as consumed by [Factory].
type Profile interface {
	// ColorSpace returns the four-character ICC colour space signature,
	// e.g. "RGB ", "XYZ ", "CMYK".
	ColorSpace() string
	// Data returns the encoded ICC bytes backing this profile.
	Data() []byte
}

// Transform converts colour values from a Profile's source space to its
// destination space. Input/output are normalised per-channel float slices;
// callers are responsible for channel-count bookkeeping (RGB vs XYZ vs
// CMYK).
type Transform interface {
	Convert(src []float64) ([]float64, error)
}

// Factory builds Profiles and Transforms — the external CMM the colorist
// core delegates to for profile structures its own built-in engine cannot
// model in closed form.
type Factory interface {
	NewProfile(data []byte) (Profile, error)
	NewTransform(src, dst Profile, intent RenderingIntent, flags Flags) (Transform, error)
}

// ICCProfile is the concrete [Profile] implementation: a fully decoded
// binary ICC profile.
type ICCProfile struct {
	data []byte
	icc  *iccprofile.Profile
}

// NewICCProfile decodes raw ICC bytes into a [Profile].
func NewICCProfile(data []byte) (*ICCProfile, error) {
	p, err := iccprofile.Decode(data)
	if err != nil {
		return nil, err
	}
	return &ICCProfile{data: data, icc: p}, nil
}

func (p *ICCProfile) ColorSpace() string { return p.icc.ColorSpace.String() }
func (p *ICCProfile) Data() []byte       { return p.data }

type factoryImpl struct{}

// NewFactory returns the default built-in CMM factory.
func NewFactory() Factory { return &factoryImpl{} }

func (f *factoryImpl) NewProfile(data []byte) (Profile, error) {
	return NewICCProfile(data)
}

// NewTransform builds a transform between two decoded profiles. The
// supported profile shapes (matrix/TRC, gray/TRC) are intent-invariant,
// so the requested intent only participates in the caller-facing
// contract; it never changes the colour math here.
func (f *factoryImpl) NewTransform(src, dst Profile, intent RenderingIntent, flags Flags) (Transform, error) {
	if src == nil || dst == nil {
		return nil, errors.New("cmm: source and destination profiles required")
	}

	if bytes.Equal(src.Data(), dst.Data()) {
		return identityTransform{}, nil
	}

	srcICC, srcOK := src.(*ICCProfile)
	dstICC, dstOK := dst.(*ICCProfile)
	if !srcOK || !dstOK {
		return nil, errors.New("cmm: unsupported profile implementation")
	}

	if dstICC.icc.ColorSpace == iccprofile.PCSXYZSpace {
		eng, err := newEngine(srcICC.icc, deviceToPCS)
		if err != nil {
			return nil, err
		}
		return &engineTransform{engines: []*engine{eng}}, nil
	}
	if srcICC.icc.ColorSpace == iccprofile.PCSXYZSpace {
		eng, err := newEngine(dstICC.icc, pcsToDevice)
		if err != nil {
			return nil, err
		}
		return &engineTransform{engines: []*engine{eng}}, nil
	}

	toXYZ, err := newEngine(srcICC.icc, deviceToPCS)
	if err != nil {
		return nil, err
	}
	fromXYZ, err := newEngine(dstICC.icc, pcsToDevice)
	if err != nil {
		return nil, err
	}
	return &engineTransform{engines: []*engine{toXYZ, fromXYZ}, copyAlpha: flags&FlagCopyAlpha != 0}, nil
}

type identityTransform struct{}

func (identityTransform) Convert(src []float64) ([]float64, error) {
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst, nil
}

// engineTransform pipes a colour through one or two engines (device->PCS,
// then optionally PCS->device). It is reentrant: engines hold only
// read-only prepared state after construction, matching the dispatcher's
// requirement that kernels be safely callable from multiple goroutines.
type engineTransform struct {
	engines   []*engine
	copyAlpha bool
}

func (t *engineTransform) Convert(src []float64) ([]float64, error) {
	var alpha float64
	hasAlpha := len(src) == 4
	if hasAlpha {
		alpha = src[3]
		src = src[:3]
	}

	values := append([]float64(nil), src...)
	for _, eng := range t.engines {
		values = eng.apply(values)
	}

	if hasAlpha && t.copyAlpha {
		values = append(values, alpha)
	}
	return values, nil
}
