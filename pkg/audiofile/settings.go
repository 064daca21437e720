package audiofile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Settings describes how a clip is turned into a feature tensor. A model is
// trained against one Settings value and must be served with the same one.
type Settings struct {
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	MelBands   int     `json:"mel_bands" yaml:"mel_bands"`
	Duration   float64 `json:"duration" yaml:"duration"` // seconds
	HopLength  int     `json:"hop_length" yaml:"hop_length"`
}

// DefaultSettings returns the settings the bundled model was trained with.
func DefaultSettings() Settings {
	return Settings{
		SampleRate: 16000,
		MelBands:   128,
		Duration:   4,
		HopLength:  512,
	}
}

// Validate reports whether every field is positive.
func (s Settings) Validate() error {
	var errs []error
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", s.SampleRate))
	}
	if s.MelBands <= 0 {
		errs = append(errs, fmt.Errorf("mel bands must be positive, got %d", s.MelBands))
	}
	if s.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", s.Duration))
	}
	if s.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("hop length must be positive, got %d", s.HopLength))
	}
	if len(errs) > 0 {
		return fmt.Errorf("audiofile: invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// TargetShape returns the (rows, cols) of every tensor produced with s:
// MelBands rows and floor((Duration*SampleRate + HopLength) / HopLength)
// frames.
func (s Settings) TargetShape() (rows, cols int) {
	samples := s.Duration * float64(s.SampleRate)
	hop := float64(s.HopLength)
	return s.MelBands, int(math.Floor((samples + hop) / hop))
}

// String renders s as a stable identifier, e.g.
// "sr_16000__mel_128__dur_4__hop_512".
func (s Settings) String() string {
	return fmt.Sprintf("sr_%d__mel_%d__dur_%s__hop_%d",
		s.SampleRate, s.MelBands, strconv.FormatFloat(s.Duration, 'f', -1, 64), s.HopLength)
}

// Tensor is a row-major log-mel spectrogram: Rows mel bands by Cols frames.
type Tensor struct {
	Rows int
	Cols int
	Data []float32
}

// At returns the value at mel band r and frame c.
func (t *Tensor) At(r, c int) float32 {
	return t.Data[r*t.Cols+c]
}

// Stats returns the mean and population standard deviation of the tensor.
func (t *Tensor) Stats() (mean, std float64) {
	if len(t.Data) == 0 {
		return 0, 0
	}
	for _, v := range t.Data {
		mean += float64(v)
	}
	mean /= float64(len(t.Data))
	for _, v := range t.Data {
		d := float64(v) - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(t.Data)))
}
