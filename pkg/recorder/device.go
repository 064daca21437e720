package recorder

import (
	"errors"
	"fmt"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
)

// ErrInputOverflowed is returned by Stream.Read when the host dropped input.
// The samples returned with it are valid; the recorder keeps going.
var ErrInputOverflowed = errors.New("recorder: input overflowed")

// Device is an acquired capture device.
type Device interface {
	// Open opens and starts a stream delivering framesPerBuffer frames of
	// interleaved int16 samples per Read.
	Open(format pcm.Format, framesPerBuffer int) (Stream, error)
	// Close releases the device. Streams must be closed first.
	Close() error
}

// Stream is an open capture stream.
type Stream interface {
	// Read blocks until one buffer is available and copies it into buf,
	// returning the number of samples copied.
	Read(buf []int16) (int, error)
	Close() error
}

// OpenFunc acquires a capture device.
type OpenFunc func() (Device, error)

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	IsDefault         bool    `json:"is_default" yaml:"is_default"`
}

// ListFunc enumerates the capture devices on the host.
type ListFunc func() ([]DeviceInfo, error)

// DeviceError reports a failure to acquire, open, or read the capture
// device.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("recorder: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
