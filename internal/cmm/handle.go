package cmm

import (
	"errors"
	"fmt"
	"sync"
)

// PixelFormat identifies the channel layout and sample type a transform
// handle reads or writes, matching the fixed set an external CMM needs to
// agree on with its caller.
type PixelFormat int

// Pixel formats recognized by [CreateTransform].
const (
	PixelFormatRGBFloat PixelFormat = iota
	PixelFormatXYZFloat
	PixelFormatGrayFloat
)

func (f PixelFormat) channels() int {
	switch f {
	case PixelFormatGrayFloat:
		return 1
	default:
		return 3
	}
}

// ProfileHandle names a profile previously registered with [RegisterProfile].
type ProfileHandle uint64

// TransformHandle names a transform previously created with
// [CreateTransform]. It is the unit of reuse across repeated doTransform
// calls, mirroring how an external CMM amortizes setup across many pixels.
type TransformHandle uint64

var (
	registryMu  sync.Mutex
	profiles    = map[ProfileHandle]Profile{}
	transforms  = map[TransformHandle]Transform{}
	nextProfile ProfileHandle = 1
	nextHandle  TransformHandle = 1
)

// RegisterProfile makes a decoded profile addressable by a [ProfileHandle],
// for use with [CreateTransform]. The default [Factory] is used to decode.
func RegisterProfile(data []byte) (ProfileHandle, error) {
	p, err := NewFactory().NewProfile(data)
	if err != nil {
		return 0, err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	h := nextProfile
	nextProfile++
	profiles[h] = p
	return h, nil
}

// ReleaseProfile forgets a profile handle. It does not affect transforms
// already created from it.
func ReleaseProfile(h ProfileHandle) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(profiles, h)
}

// CreateTransform builds a transform between two registered profiles,
// returning an opaque handle. This is the literal external-CMM entry
// point: createTransform(srcHandle, srcPixelFormat, dstHandle,
// dstPixelFormat, intent, flags) -> handle.
func CreateTransform(srcHandle ProfileHandle, srcFormat PixelFormat, dstHandle ProfileHandle, dstFormat PixelFormat, intent RenderingIntent, flags Flags) (TransformHandle, error) {
	registryMu.Lock()
	src, srcOK := profiles[srcHandle]
	dst, dstOK := profiles[dstHandle]
	registryMu.Unlock()
	if !srcOK {
		return 0, fmt.Errorf("cmm: unknown source profile handle %d", srcHandle)
	}
	if !dstOK {
		return 0, fmt.Errorf("cmm: unknown destination profile handle %d", dstHandle)
	}
	if srcFormat.channels() == 0 || dstFormat.channels() == 0 {
		return 0, errors.New("cmm: unsupported pixel format")
	}

	t, err := NewFactory().NewTransform(src, dst, intent, flags)
	if err != nil {
		return 0, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	h := nextHandle
	nextHandle++
	transforms[h] = t
	return h, nil
}

// DoTransform applies a transform handle to count pixels read from in and
// written to out, both laid out as count consecutive channel groups (3
// floats per pixel for RGB/XYZ, 1 for gray). It is the literal
// doTransform(handle, in, out, count) entry point.
func DoTransform(h TransformHandle, in []float64, out []float64, count int) error {
	registryMu.Lock()
	t, ok := transforms[h]
	registryMu.Unlock()
	if !ok {
		return fmt.Errorf("cmm: unknown transform handle %d", h)
	}

	if count <= 0 {
		return nil
	}
	inStride := len(in) / count
	outStride := len(out) / count
	if inStride == 0 || outStride == 0 {
		return errors.New("cmm: input/output buffers too small for count")
	}

	for i := range count {
		src := in[i*inStride : i*inStride+inStride]
		dst, err := t.Convert(src)
		if err != nil {
			return fmt.Errorf("cmm: transform pixel %d: %w", i, err)
		}
		n := copy(out[i*outStride:i*outStride+outStride], dst)
		_ = n
	}
	return nil
}

// DeleteTransform releases a transform handle. Subsequent DoTransform calls
// against it return an error.
func DeleteTransform(h TransformHandle) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(transforms, h)
}
