// Package padevice adapts the PortAudio bindings to recorder.Device.
package padevice

import (
	"errors"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
	"github.com/haivivi/crybaby/pkg/audio/portaudio"
	"github.com/haivivi/crybaby/pkg/recorder"
)

// Open initializes PortAudio and returns the default input device. It
// satisfies recorder.OpenFunc.
func Open() (recorder.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &device{}, nil
}

// List returns the PortAudio input devices. It satisfies recorder.ListFunc.
func List() ([]recorder.DeviceInfo, error) {
	devs, err := portaudio.InputDevices()
	if err != nil {
		return nil, err
	}
	out := make([]recorder.DeviceInfo, 0, len(devs))
	for _, d := range devs {
		out = append(out, recorder.DeviceInfo{
			Index:             d.Index,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         d.IsDefaultInput,
		})
	}
	return out, nil
}

type device struct{}

func (d *device) Open(format pcm.Format, framesPerBuffer int) (recorder.Stream, error) {
	s, err := portaudio.NewInputStream(format, framesPerBuffer)
	if err != nil {
		return nil, err
	}
	return &stream{s: s}, nil
}

func (d *device) Close() error {
	return portaudio.Terminate()
}

type stream struct {
	s *portaudio.InputStream
}

func (s *stream) Read(buf []int16) (int, error) {
	n, err := s.s.Read(buf)
	if errors.Is(err, portaudio.ErrInputOverflowed) {
		return n, recorder.ErrInputOverflowed
	}
	return n, err
}

func (s *stream) Close() error {
	return s.s.Close()
}
