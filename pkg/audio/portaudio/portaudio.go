// Package portaudio provides Go bindings for the PortAudio library.
//
// This package uses CGO to interface with the PortAudio C library and only
// exposes what microphone capture needs: device enumeration and blocking
// int16 input streams.
//
// For go build: requires portaudio installed via pkg-config (brew install portaudio)
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// Wrapper functions using void* to avoid CGO type issues with PaStream
static PaError pa_open_input_stream(void **stream,
                                    const PaStreamParameters *inputParams,
                                    double sampleRate,
                                    unsigned long framesPerBuffer,
                                    PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, NULL, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

// ErrInputOverflowed is returned by Read when the host dropped input because
// it was not read fast enough. The samples returned alongside it are valid.
var ErrInputOverflowed = errors.New("portaudio: input overflowed")

var (
	initMu   sync.Mutex
	initRefs int
)

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	if code == C.paInputOverflowed {
		return ErrInputOverflowed
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library. Calls are reference counted
// and must be balanced with Terminate, so the library can be brought up again
// after a full shutdown.
func Initialize() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initRefs == 0 {
		if err := paError(C.Pa_Initialize()); err != nil {
			return err
		}
	}
	initRefs++
	return nil
}

// Terminate releases one Initialize reference. The library is shut down when
// the last reference is released.
func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initRefs == 0 {
		return nil
	}
	initRefs--
	if initRefs > 0 {
		return nil
	}
	return paError(C.Pa_Terminate())
}

// DeviceInfo contains information about an audio device.
type DeviceInfo struct {
	Index                   int     `json:"index" yaml:"index"`
	Name                    string  `json:"name" yaml:"name"`
	MaxInputChannels        int     `json:"max_input_channels" yaml:"max_input_channels"`
	DefaultLowInputLatency  float64 `json:"default_low_input_latency" yaml:"default_low_input_latency"`
	DefaultHighInputLatency float64 `json:"default_high_input_latency" yaml:"default_high_input_latency"`
	DefaultSampleRate       float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	IsDefaultInput          bool    `json:"is_default_input" yaml:"is_default_input"`
}

// InputDevices returns the devices that can capture audio.
func InputDevices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}

	defaultInput := int(C.Pa_GetDefaultInputDevice())

	var devices []DeviceInfo
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil || info.maxInputChannels <= 0 {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:                   i,
			Name:                    C.GoString(info.name),
			MaxInputChannels:        int(info.maxInputChannels),
			DefaultLowInputLatency:  float64(info.defaultLowInputLatency),
			DefaultHighInputLatency: float64(info.defaultHighInputLatency),
			DefaultSampleRate:       float64(info.defaultSampleRate),
			IsDefaultInput:          i == defaultInput,
		})
	}
	return devices, nil
}

// stream represents an open PortAudio input stream.
type stream struct {
	stream   unsafe.Pointer
	buffer   unsafe.Pointer
	frames   int
	channels int
	closed   bool
	mu       sync.Mutex
}

// openInputStream opens a blocking int16 stream on the default input device.
// The library must already be initialized.
func openInputStream(channels int, sampleRate float64, framesPerBuffer int) (*stream, error) {
	inputDevice := C.Pa_GetDefaultInputDevice()
	if inputDevice == C.paNoDevice {
		return nil, errors.New("no default input device")
	}
	inputInfo := C.Pa_GetDeviceInfo(inputDevice)
	if inputInfo == nil {
		return nil, errors.New("failed to get device info")
	}
	inputParams := &C.PaStreamParameters{
		device:                    inputDevice,
		channelCount:              C.int(channels),
		sampleFormat:              C.paInt16,
		suggestedLatency:          inputInfo.defaultLowInputLatency,
		hostApiSpecificStreamInfo: nil,
	}

	var paStream unsafe.Pointer
	err := paError(C.pa_open_input_stream(
		&paStream,
		inputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, err
	}

	// frames * channels * sizeof(int16)
	bufferSize := framesPerBuffer * channels * 2
	return &stream{
		stream:   paStream,
		buffer:   C.malloc(C.size_t(bufferSize)),
		frames:   framesPerBuffer,
		channels: channels,
	}, nil
}

func (s *stream) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("stream closed")
	}
	return paError(C.pa_start_stream(s.stream))
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	C.pa_stop_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}

// read blocks for one buffer and copies the interleaved samples into dst.
// On ErrInputOverflowed the copy still happens.
func (s *stream) read(dst []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.New("stream closed")
	}

	err := paError(C.pa_read_stream(s.stream, s.buffer, C.ulong(s.frames)))
	if err != nil && !errors.Is(err, ErrInputOverflowed) {
		return 0, err
	}

	n := s.frames * s.channels
	if len(dst) < n {
		n = len(dst)
	}
	if n > 0 {
		C.memcpy(unsafe.Pointer(&dst[0]), s.buffer, C.size_t(n*2))
	}
	return n, err
}
