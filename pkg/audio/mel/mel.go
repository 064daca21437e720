// Package mel computes log-power mel spectrograms from PCM audio.
//
// The transform follows the librosa defaults that most audio classifiers
// are trained against:
//
//	FFTSize:  2048
//	Window:   periodic Hann
//	Centered: frames padded by FFTSize/2 zeros on both sides
//	Power:    2 (power spectrum)
//	Mel:      Slaney scale with Slaney area normalisation
//	FMin:     0
//	FMax:     SampleRate / 2
//
// The output is a [numMels][T] matrix where T = 1 + len(samples)/HopSize.
package mel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrZeroVariance is returned by Normalize when every value is identical.
var ErrZeroVariance = errors.New("mel: zero variance")

// Config controls mel spectrogram extraction parameters.
type Config struct {
	SampleRate int     // audio sample rate in Hz
	FFTSize    int     // FFT and window length (default 2048)
	HopSize    int     // hop length in samples (default 512)
	NumMels    int     // number of mel bands (default 128)
	FMin       float64 // lowest filter edge in Hz (default 0)
	FMax       float64 // highest filter edge in Hz (default SampleRate/2)
}

// DefaultConfig returns the librosa default config for sampleRate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate: sampleRate,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    128,
		FMin:       0,
		FMax:       float64(sampleRate) / 2,
	}
}

// Extractor computes mel spectrograms from float32 samples. It holds the
// precomputed window and filterbank and is safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64 // periodic Hann window
	melBank [][]float64
}

// New creates a new mel Extractor with the given config. Zero fields are
// filled from DefaultConfig.
func New(cfg Config) *Extractor {
	def := DefaultConfig(cfg.SampleRate)
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = def.FFTSize
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = def.HopSize
	}
	if cfg.NumMels <= 0 {
		cfg.NumMels = def.NumMels
	}
	if cfg.FMax <= 0 {
		cfg.FMax = def.FMax
	}
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FMin, cfg.FMax),
	}
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Frames returns the number of centred frames produced for n samples.
func (e *Extractor) Frames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// Power computes the mel power spectrogram of samples.
// Output: [numMels][T] float64 matrix.
func (e *Extractor) Power(samples []float32) [][]float64 {
	nfft := e.cfg.FFTSize
	hop := e.cfg.HopSize
	halfFFT := nfft/2 + 1
	pad := nfft / 2
	numFrames := e.Frames(len(samples))

	out := make([][]float64, e.cfg.NumMels)
	for m := range out {
		out[m] = make([]float64, numFrames)
	}

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, halfFFT)
	power := make([]float64, halfFFT)

	for t := 0; t < numFrames; t++ {
		// Position of the frame in the zero padded signal.
		start := t*hop - pad
		for i := 0; i < nfft; i++ {
			j := start + i
			if j < 0 || j >= len(samples) {
				frame[i] = 0
				continue
			}
			frame[i] = float64(samples[j]) * e.window[i]
		}

		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = re*re + im*im
		}

		for m, filter := range e.melBank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			out[m][t] = sum
		}
	}
	return out
}

// Resize zero pads or truncates every row of spec to exactly frames columns.
func Resize(spec [][]float64, frames int) [][]float64 {
	for m, row := range spec {
		switch {
		case len(row) > frames:
			spec[m] = row[:frames]
		case len(row) < frames:
			grown := make([]float64, frames)
			copy(grown, row)
			spec[m] = grown
		}
	}
	return spec
}

// PowerToDB converts a power spectrogram to decibels in place:
// 10*log10(max(amin, S)) - 10*log10(max(amin, ref)), then floors every value
// at max - topDB. A non-positive topDB disables the floor.
func PowerToDB(spec [][]float64, ref, amin, topDB float64) {
	offset := 10 * math.Log10(math.Max(amin, ref))
	peak := math.Inf(-1)
	for _, row := range spec {
		for t, v := range row {
			db := 10*math.Log10(math.Max(amin, v)) - offset
			row[t] = db
			if db > peak {
				peak = db
			}
		}
	}
	if topDB <= 0 {
		return
	}
	floor := peak - topDB
	for _, row := range spec {
		for t, v := range row {
			if v < floor {
				row[t] = floor
			}
		}
	}
}

// Normalize flattens spec row-major and applies a z-score with the
// population standard deviation over all values.
func Normalize(spec [][]float64) ([]float32, error) {
	n := 0
	sum := 0.0
	for _, row := range spec {
		for _, v := range row {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil, ErrZeroVariance
	}
	mean := sum / float64(n)

	varSum := 0.0
	for _, row := range spec {
		for _, v := range row {
			d := v - mean
			varSum += d * d
		}
	}
	std := math.Sqrt(varSum / float64(n))
	if std == 0 || math.IsNaN(std) {
		return nil, ErrZeroVariance
	}

	flat := make([]float32, 0, n)
	for _, row := range spec {
		for _, v := range row {
			flat = append(flat, float32((v-mean)/std))
		}
	}
	return flat, nil
}
