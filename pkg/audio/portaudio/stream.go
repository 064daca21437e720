package portaudio

import (
	"io"
	"sync"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
)

// InputStream captures audio from the default input device.
type InputStream struct {
	stream *stream
	format pcm.Format
	mu     sync.Mutex
	closed bool
}

// NewInputStream opens and starts a capture stream. Each Read returns
// framesPerBuffer frames of interleaved int16 samples. The caller must hold an
// Initialize reference for the lifetime of the stream.
func NewInputStream(format pcm.Format, framesPerBuffer int) (*InputStream, error) {
	s, err := openInputStream(format.Channels(), float64(format.SampleRate()), framesPerBuffer)
	if err != nil {
		return nil, err
	}

	if err := s.start(); err != nil {
		s.close()
		return nil, err
	}

	return &InputStream{
		stream: s,
		format: format,
	}, nil
}

// Read reads one buffer of PCM samples into buf. It returns the number of
// samples (not frames, not bytes) copied. ErrInputOverflowed is returned with
// a valid sample count.
func (is *InputStream) Read(buf []int16) (int, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return 0, io.EOF
	}
	return is.stream.read(buf)
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Close stops and closes the stream.
func (is *InputStream) Close() error {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return nil
	}
	is.closed = true

	return is.stream.close()
}
