package recorder

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
)

// Settings controls capture.
type Settings struct {
	SampleRate      int           `json:"sample_rate" yaml:"sample_rate"`
	Channels        int           `json:"channels" yaml:"channels"`
	FramesPerBuffer int           `json:"frames_per_buffer" yaml:"frames_per_buffer"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	TempDir         string        `json:"temp_dir" yaml:"temp_dir"`
	QueueSize       int           `json:"queue_size" yaml:"queue_size"`
}

// DefaultSettings returns 4 second mono clips at 44.1 kHz read in 1024 frame
// buffers.
func DefaultSettings() Settings {
	return Settings{
		SampleRate:      44100,
		Channels:        1,
		FramesPerBuffer: 1024,
		Duration:        4 * time.Second,
		TempDir:         os.TempDir(),
		QueueSize:       8,
	}
}

// Validate checks s.
func (s Settings) Validate() error {
	var errs []error
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", s.SampleRate))
	}
	if s.Channels != 1 && s.Channels != 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("frames per buffer must be positive, got %d", s.FramesPerBuffer))
	}
	if s.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", s.Duration))
	}
	if s.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue size must not be negative, got %d", s.QueueSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("recorder: invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// Format returns the PCM format clips are captured and written in.
func (s Settings) Format() pcm.Format {
	return pcm.New(s.SampleRate, s.Channels)
}

// Buffers returns how many reads make up one clip.
func (s Settings) Buffers() int {
	return s.Format().BuffersInDuration(s.FramesPerBuffer, s.Duration)
}
