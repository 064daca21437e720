// Package audiofile turns WAV clips into normalised log-mel feature tensors
// and provides the file-level helpers the recording pipeline needs: duration,
// crop, pad and a loudness gate.
//
// Decoded audio is kept in a bounded, expiring cache keyed by path and
// sample rate, so the loudness gate and the feature extractor share one
// decode per clip.
package audiofile

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/haivivi/crybaby/pkg/audio/mel"
	"github.com/haivivi/crybaby/pkg/audio/pcm"
	"github.com/haivivi/crybaby/pkg/audio/resampler"
	"github.com/haivivi/crybaby/pkg/audio/wav"
)

const (
	defaultCacheBytes = 256 << 20
	defaultCacheTTL   = 10 * time.Minute

	// Loudness framing matches the spectrogram defaults.
	loudnessFrame = 2048
	loudnessHop   = 512
	// Reference amplitude for sound pressure level: 20 µPa.
	loudnessRef  = 2e-5
	loudnessAmin = 1e-5
)

// clientConfig represents client configuration
type clientConfig struct {
	cacheBytes int64
	cacheTTL   time.Duration
	resample   bool
	lenient    bool
	logger     *slog.Logger
}

// Option represents configuration option function
type Option func(*clientConfig)

// WithCacheSize bounds the decode cache by total sample bytes.
func WithCacheSize(bytes int64) Option {
	return func(c *clientConfig) {
		c.cacheBytes = bytes
	}
}

// WithCacheTTL sets how long a decoded file stays cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheTTL = ttl
	}
}

// WithoutResampling decodes files at their native rate. Extraction then
// fails with ErrSampleRateMismatch for files not recorded at the expected
// rate, unless WithLenientSampleRate is also set.
func WithoutResampling() Option {
	return func(c *clientConfig) {
		c.resample = false
	}
}

// WithLenientSampleRate logs a sample rate mismatch instead of failing.
func WithLenientSampleRate() Option {
	return func(c *clientConfig) {
		c.lenient = true
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// Client extracts features from audio files. It is safe for concurrent use.
type Client struct {
	config *clientConfig
	cache  *decodeCache

	mu         sync.Mutex
	extractors map[mel.Config]*mel.Extractor
}

// New creates an audio file client.
func New(opts ...Option) (*Client, error) {
	config := &clientConfig{
		cacheBytes: defaultCacheBytes,
		cacheTTL:   defaultCacheTTL,
		resample:   true,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.logger == nil {
		config.logger = slog.Default()
	}

	cache, err := newDecodeCache(config.cacheBytes, config.cacheTTL)
	if err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		cache:      cache,
		extractors: make(map[mel.Config]*mel.Extractor),
	}, nil
}

// Close releases the decode cache.
func (c *Client) Close() error {
	c.cache.close()
	return nil
}

// Forget drops every cached decode of path.
func (c *Client) Forget(path string) {
	c.cache.forget(cleanPath(path))
}

// ExtractMelSpectrogram loads path and returns its normalised log-mel
// spectrogram with exactly s.TargetShape().
func (c *Client) ExtractMelSpectrogram(path string, s Settings) (*Tensor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := checkFile(path); err != nil {
		return nil, err
	}

	rate := s.SampleRate
	if !c.config.resample {
		rate = 0
	}
	d, err := c.load(path, rate)
	if err != nil {
		return nil, err
	}

	if got, want := round1(d.duration()), round1(s.Duration); got != want {
		return nil, fmt.Errorf("%w: %s is %.1fs, want %.1fs", ErrDurationMismatch, path, got, want)
	}
	if d.sampleRate != s.SampleRate {
		if !c.config.lenient {
			return nil, fmt.Errorf("%w: %s is %d Hz, want %d Hz", ErrSampleRateMismatch, path, d.sampleRate, s.SampleRate)
		}
		c.config.logger.Warn("audiofile: sample rate mismatch",
			"path", path, "rate", d.sampleRate, "want", s.SampleRate)
	}

	rows, cols := s.TargetShape()
	e := c.extractor(mel.Config{
		SampleRate: d.sampleRate,
		HopSize:    s.HopLength,
		NumMels:    s.MelBands,
	})
	spec := mel.Resize(e.Power(d.samples), cols)
	mel.PowerToDB(spec, 1, 1e-10, 80)
	data, err := mel.Normalize(spec)
	if err != nil {
		if errors.Is(err, mel.ErrZeroVariance) {
			return nil, fmt.Errorf("%w: %s", ErrSilentInput, path)
		}
		return nil, err
	}
	return &Tensor{Rows: rows, Cols: cols, Data: data}, nil
}

// Duration returns the length of path in seconds after decoding at
// sampleRate (0 keeps the native rate). hopLength does not change the result.
func (c *Client) Duration(path string, hopLength, sampleRate int) (float64, error) {
	if err := checkFile(path); err != nil {
		return 0, err
	}
	d, err := c.load(path, sampleRate)
	if err != nil {
		return 0, err
	}
	return d.duration(), nil
}

// Crop writes the [start, end) seconds of path to "<stem>.cropped.wav" next
// to it and returns the new path. An end past the clip is clamped.
func (c *Client) Crop(path string, start, end float64) (string, error) {
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: [%v, %v)", ErrInvalidRange, start, end)
	}
	if err := checkFile(path); err != nil {
		return "", err
	}
	d, err := c.load(path, 0)
	if err != nil {
		return "", err
	}

	from := int(math.Round(start * float64(d.sampleRate)))
	to := int(math.Round(end * float64(d.sampleRate)))
	if from >= len(d.samples) {
		return "", fmt.Errorf("%w: start %vs is past the end of %s", ErrInvalidRange, start, path)
	}
	to = min(to, len(d.samples))

	out := withSuffix(path, ".cropped")
	if err := c.write(out, d.sampleRate, d.samples[from:to]); err != nil {
		return "", err
	}
	return out, nil
}

// Pad appends silence to path so it lasts at least duration seconds, writes
// the result to "<stem>.padded.wav" and returns its path. A clip that is
// already long enough is returned unchanged.
func (c *Client) Pad(path string, duration float64) (string, error) {
	if err := checkFile(path); err != nil {
		return "", err
	}
	d, err := c.load(path, 0)
	if err != nil {
		return "", err
	}
	current := d.duration()
	if current >= duration {
		return path, nil
	}

	silence := int((duration - current) * float64(d.sampleRate))
	padded := make([]float32, len(d.samples)+silence)
	copy(padded, d.samples)

	out := withSuffix(path, ".padded")
	if err := c.write(out, d.sampleRate, padded); err != nil {
		return "", err
	}
	return out, nil
}

// CheckLoudness reports whether any frame of path is louder than
// thresholdDB, measured as RMS sound pressure level relative to 20 µPa after
// decoding at sampleRate.
func (c *Client) CheckLoudness(path string, thresholdDB float64, sampleRate int) (bool, error) {
	if err := checkFile(path); err != nil {
		return false, err
	}
	d, err := c.load(path, sampleRate)
	if err != nil {
		return false, err
	}
	levels := mel.AmplitudeToDB(mel.RMS(d.samples, loudnessFrame, loudnessHop), loudnessRef, loudnessAmin)
	for _, db := range levels {
		if db > thresholdDB {
			return true, nil
		}
	}
	return false, nil
}

// Info describes a file as stored on disk.
type Info struct {
	Path       string  `json:"path" yaml:"path"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Channels   int     `json:"channels" yaml:"channels"`
	Duration   float64 `json:"duration" yaml:"duration"`
}

// Stat decodes path at its native rate and describes it.
func (c *Client) Stat(path string) (*Info, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	d, err := c.load(path, 0)
	if err != nil {
		return nil, err
	}
	return &Info{
		Path:       path,
		SampleRate: d.sampleRate,
		Channels:   d.channels,
		Duration:   d.duration(),
	}, nil
}

// load decodes path as mono at rate, or at the native rate when rate is 0.
func (c *Client) load(path string, rate int) (*decoded, error) {
	key := cleanPath(path)
	if d, ok := c.cache.get(key, rate); ok {
		return d, nil
	}

	a, err := wav.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	d := &decoded{
		samples:    a.Mono(),
		sampleRate: a.SampleRate,
		channels:   a.Channels,
	}
	if rate > 0 && rate != a.SampleRate {
		out, err := resampler.Resample(d.samples, a.SampleRate, rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
		}
		d.samples = out
		d.sampleRate = rate
	}
	c.cache.set(key, rate, d)
	return d, nil
}

func (c *Client) write(path string, rate int, samples []float32) error {
	if err := wav.WriteFloatFile(path, pcm.Mono(rate), samples); err != nil {
		return fmt.Errorf("audiofile: write %s: %w", path, err)
	}
	c.Forget(path)
	return nil
}

func (c *Client) extractor(cfg mel.Config) *mel.Extractor {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.extractors[cfg]
	if !ok {
		e = mel.New(cfg)
		c.extractors[cfg] = e
	}
	return e
}

func checkFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// withSuffix turns "dir/a.wav" into "dir/a<suffix>.wav".
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
