package audiofile

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
	"github.com/haivivi/crybaby/pkg/audio/wav"
)

// writeSine writes a mono 16-bit sine wave and returns its path.
func writeSine(t *testing.T, dir, name string, freq, amp float64, rate int, seconds float64) string {
	t.Helper()
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	path := filepath.Join(dir, name)
	if err := wav.WriteFloatFile(path, pcm.Mono(rate), samples); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()
	rows, cols := s.TargetShape()
	if rows != 128 || cols != 126 {
		t.Errorf("TargetShape() = (%d, %d), want (128, 126)", rows, cols)
	}
	if got := s.String(); got != "sr_16000__mel_128__dur_4__hop_512" {
		t.Errorf("String() = %q", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	bad := Settings{SampleRate: 16000, MelBands: 0, Duration: -1, HopLength: 512}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() should reject non-positive fields")
	}
}

func TestExtractMelSpectrogram(t *testing.T) {
	dir := t.TempDir()
	path := writeSine(t, dir, "sine.wav", 440, 0.5, 16000, 4)
	c := newClient(t)

	tensor, err := c.ExtractMelSpectrogram(path, DefaultSettings())
	if err != nil {
		t.Fatalf("ExtractMelSpectrogram: %v", err)
	}
	if tensor.Rows != 128 || tensor.Cols != 126 {
		t.Fatalf("shape = (%d, %d), want (128, 126)", tensor.Rows, tensor.Cols)
	}
	if len(tensor.Data) != 128*126 {
		t.Fatalf("len(Data) = %d", len(tensor.Data))
	}
	mean, std := tensor.Stats()
	if math.Abs(mean) > 1e-4 {
		t.Errorf("mean = %g, want ~0", mean)
	}
	if math.Abs(std-1) > 1e-4 {
		t.Errorf("std = %g, want ~1", std)
	}
}

func TestExtractMelSpectrogram_Errors(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t)
	s := DefaultSettings()

	t.Run("missing", func(t *testing.T) {
		_, err := c.ExtractMelSpectrogram(filepath.Join(dir, "nope.wav"), s)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := c.ExtractMelSpectrogram(dir, s)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("wrong duration", func(t *testing.T) {
		path := writeSine(t, dir, "short.wav", 440, 0.5, 16000, 2)
		_, err := c.ExtractMelSpectrogram(path, s)
		if !errors.Is(err, ErrDurationMismatch) {
			t.Errorf("error = %v, want ErrDurationMismatch", err)
		}
	})

	t.Run("silent", func(t *testing.T) {
		path := writeSine(t, dir, "silent.wav", 440, 0, 16000, 4)
		_, err := c.ExtractMelSpectrogram(path, s)
		if !errors.Is(err, ErrSilentInput) {
			t.Errorf("error = %v, want ErrSilentInput", err)
		}
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.wav")
		if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := c.ExtractMelSpectrogram(path, s)
		if !errors.Is(err, ErrLoad) {
			t.Errorf("error = %v, want ErrLoad", err)
		}
	})
}

func TestExtractMelSpectrogram_SampleRate(t *testing.T) {
	dir := t.TempDir()
	path := writeSine(t, dir, "8k.wav", 440, 0.5, 8000, 4)
	s := DefaultSettings()

	strict := newClient(t, WithoutResampling())
	if _, err := strict.ExtractMelSpectrogram(path, s); !errors.Is(err, ErrSampleRateMismatch) {
		t.Errorf("strict error = %v, want ErrSampleRateMismatch", err)
	}

	lenient := newClient(t, WithoutResampling(), WithLenientSampleRate())
	tensor, err := lenient.ExtractMelSpectrogram(path, s)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if tensor.Rows != 128 || tensor.Cols != 126 {
		t.Errorf("lenient shape = (%d, %d), want (128, 126)", tensor.Rows, tensor.Cols)
	}
}

// TestRecorderClip decodes a clip the way the recorder writes it: 173
// buffers of 1024 frames at 44.1 kHz, resampled to 16 kHz on load.
func TestRecorderClip(t *testing.T) {
	const rate = 44100
	samples := make([]float32, 173*1024)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	path := filepath.Join(t.TempDir(), "recorded.wav")
	if err := wav.WriteFloatFile(path, pcm.Mono(rate), samples); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := newClient(t)

	d, err := c.Duration(path, 512, 16000)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(d-4.017) > 0.001 {
		t.Errorf("Duration = %v, want ~4.017", d)
	}

	tensor, err := c.ExtractMelSpectrogram(path, DefaultSettings())
	if err != nil {
		t.Fatalf("ExtractMelSpectrogram: %v", err)
	}
	if tensor.Rows != 128 || tensor.Cols != 126 {
		t.Fatalf("shape = (%d, %d), want (128, 126)", tensor.Rows, tensor.Cols)
	}
	mean, std := tensor.Stats()
	if math.Abs(mean) > 1e-4 || math.Abs(std-1) > 1e-4 {
		t.Errorf("mean = %g, std = %g", mean, std)
	}

	loud, err := c.CheckLoudness(path, 48, 16000)
	if err != nil {
		t.Fatalf("CheckLoudness: %v", err)
	}
	if !loud {
		t.Error("recorded tone should pass a 48 dB gate")
	}
}

func TestDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeSine(t, dir, "sine.wav", 440, 0.5, 16000, 4)
	c := newClient(t)

	first, err := c.Duration(path, 512, 16000)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	second, err := c.Duration(path, 512, 16000)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if first != 4 || second != first {
		t.Errorf("Duration() = %v then %v, want 4 twice", first, second)
	}
}

func TestPad(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t)

	long := writeSine(t, dir, "long.wav", 440, 0.5, 16000, 4)
	got, err := c.Pad(long, 3)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	if got != long {
		t.Errorf("Pad() = %q, want unchanged %q", got, long)
	}

	short := writeSine(t, dir, "short.wav", 440, 0.5, 16000, 2)
	padded, err := c.Pad(short, 4)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	if padded != filepath.Join(dir, "short.padded.wav") {
		t.Errorf("Pad() = %q", padded)
	}
	d, err := c.Duration(padded, 512, 0)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(d-4) > 1.0/16000 {
		t.Errorf("padded duration = %v, want ~4", d)
	}
}

func TestCrop(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t)
	path := writeSine(t, dir, "sine.wav", 440, 0.5, 16000, 4)

	out, err := c.Crop(path, 1, 2.5)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if out != filepath.Join(dir, "sine.cropped.wav") {
		t.Errorf("Crop() = %q", out)
	}
	d, err := c.Duration(out, 512, 0)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(d-1.5) > 1.0/16000 {
		t.Errorf("cropped duration = %v, want ~1.5", d)
	}

	// A second crop must not be served a stale cached decode.
	if _, err := c.Crop(path, 0, 0.5); err != nil {
		t.Fatalf("Crop: %v", err)
	}
	d, err = c.Duration(out, 512, 0)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(d-0.5) > 1.0/16000 {
		t.Errorf("re-cropped duration = %v, want ~0.5", d)
	}

	for _, r := range [][2]float64{{-1, 1}, {2, 2}, {3, 1}, {10, 11}} {
		if _, err := c.Crop(path, r[0], r[1]); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Crop(%v, %v) error = %v, want ErrInvalidRange", r[0], r[1], err)
		}
	}
}

func TestCheckLoudness(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t)

	loud := writeSine(t, dir, "loud.wav", 440, 0.5, 16000, 4)
	ok, err := c.CheckLoudness(loud, 48, 16000)
	if err != nil {
		t.Fatalf("CheckLoudness: %v", err)
	}
	if !ok {
		t.Error("0.5 amplitude sine should pass a 48 dB gate")
	}

	quiet := writeSine(t, dir, "quiet.wav", 440, 0, 16000, 4)
	ok, err = c.CheckLoudness(quiet, 48, 16000)
	if err != nil {
		t.Fatalf("CheckLoudness: %v", err)
	}
	if ok {
		t.Error("silence should not pass a 48 dB gate")
	}
}

func TestForget(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t, WithCacheTTL(time.Hour))
	path := writeSine(t, dir, "a.wav", 440, 0.5, 16000, 4)

	if _, err := c.Duration(path, 512, 16000); err != nil {
		t.Fatal(err)
	}
	// Overwrite behind the client's back, then forget.
	writeSine(t, dir, "a.wav", 440, 0.5, 16000, 2)
	c.Forget(path)

	d, err := c.Duration(path, 512, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if d != 2 {
		t.Errorf("Duration() after Forget = %v, want 2", d)
	}
}

func TestWithSuffix(t *testing.T) {
	if got := withSuffix("/tmp/a.b/clip.wav", ".cropped"); got != "/tmp/a.b/clip.cropped.wav" {
		t.Errorf("withSuffix() = %q", got)
	}
}
