package mel

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, amp float64, sampleRate, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return s
}

func TestHannWindow(t *testing.T) {
	w := hannWindow(2048)
	if len(w) != 2048 {
		t.Fatalf("expected 2048, got %d", len(w))
	}
	// Periodic Hann: starts at 0, peaks at n/2
	if w[0] != 0 {
		t.Errorf("w[0] = %f, want 0", w[0])
	}
	if math.Abs(w[1024]-1.0) > 1e-12 {
		t.Errorf("w[1024] = %f, want 1.0", w[1024])
	}
}

func TestMelConversion(t *testing.T) {
	// Linear region: 200/3 Hz per mel
	if got := hzToMel(200); math.Abs(got-3) > 1e-9 {
		t.Errorf("hzToMel(200) = %f, want 3", got)
	}
	// Log region starts at 15 mel
	if got := hzToMel(1000); math.Abs(got-15) > 1e-9 {
		t.Errorf("hzToMel(1000) = %f, want 15", got)
	}
	for _, hz := range []float64{0, 440, 1000, 4000, 8000} {
		if got := melToHz(hzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("melToHz(hzToMel(%v)) = %f", hz, got)
		}
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(128, 2048, 16000, 0, 8000)
	if len(bank) != 128 {
		t.Fatalf("expected 128 filters, got %d", len(bank))
	}
	for i, f := range bank {
		if len(f) != 1025 {
			t.Fatalf("filter %d: expected 1025 bins, got %d", i, len(f))
		}
		for _, v := range f {
			if v < 0 {
				t.Fatalf("filter %d has negative weight", i)
			}
		}
	}
	// Filters are ordered by centre frequency.
	peak := func(f []float64) int {
		best := 0
		for k, v := range f {
			if v > f[best] {
				best = k
			}
		}
		return best
	}
	if peak(bank[10]) >= peak(bank[100]) {
		t.Error("filter peaks should increase with index")
	}
}

func TestPower_Shape(t *testing.T) {
	e := New(DefaultConfig(16000))
	spec := e.Power(sine(440, 0.5, 16000, 64000))
	if len(spec) != 128 {
		t.Fatalf("rows = %d, want 128", len(spec))
	}
	if len(spec[0]) != 126 {
		t.Fatalf("cols = %d, want 126", len(spec[0]))
	}
}

func TestPower_PeakBand(t *testing.T) {
	e := New(DefaultConfig(16000))
	spec := e.Power(sine(440, 0.5, 16000, 16000))

	// The band containing 440 Hz should dominate a middle frame.
	mid := len(spec[0]) / 2
	best := 0
	for m := range spec {
		if spec[m][mid] > spec[best][mid] {
			best = m
		}
	}
	lo := melToHz(float64(best) * hzToMel(8000) / 129)
	hi := melToHz(float64(best+2) * hzToMel(8000) / 129)
	if 440 < lo || 440 > hi {
		t.Errorf("peak band %d covers %.0f-%.0f Hz, want 440 Hz inside", best, lo, hi)
	}
}

func TestResize(t *testing.T) {
	spec := [][]float64{{1, 2, 3}, {4, 5, 6}}
	Resize(spec, 2)
	if len(spec[0]) != 2 || spec[1][1] != 5 {
		t.Errorf("truncate = %v", spec)
	}
	Resize(spec, 4)
	if len(spec[0]) != 4 || spec[0][3] != 0 || spec[0][1] != 2 {
		t.Errorf("pad = %v", spec)
	}
}

func TestPowerToDB(t *testing.T) {
	spec := [][]float64{{1, 100, 1e-20}}
	PowerToDB(spec, 1, 1e-10, 80)
	want := []float64{0, 20, -60}
	for i, w := range want {
		if math.Abs(spec[0][i]-w) > 1e-9 {
			t.Errorf("spec[%d] = %f, want %f", i, spec[0][i], w)
		}
	}
}

func TestNormalize(t *testing.T) {
	flat, err := Normalize([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	var mean, sq float64
	for _, v := range flat {
		mean += float64(v)
	}
	mean /= float64(len(flat))
	for _, v := range flat {
		sq += (float64(v) - mean) * (float64(v) - mean)
	}
	std := math.Sqrt(sq / float64(len(flat)))
	if math.Abs(mean) > 1e-6 || math.Abs(std-1) > 1e-6 {
		t.Errorf("mean = %f, std = %f", mean, std)
	}

	if _, err := Normalize([][]float64{{7, 7}, {7, 7}}); !errors.Is(err, ErrZeroVariance) {
		t.Errorf("constant input error = %v, want ErrZeroVariance", err)
	}
}

func TestRMS(t *testing.T) {
	s := sine(440, 0.5, 16000, 16000)
	rms := RMS(s, 2048, 512)
	if len(rms) != 1+16000/512 {
		t.Fatalf("frames = %d", len(rms))
	}
	// Full frames of a sine: amplitude / sqrt(2)
	mid := rms[len(rms)/2]
	if math.Abs(mid-0.5/math.Sqrt2) > 0.01 {
		t.Errorf("rms = %f, want ~%f", mid, 0.5/math.Sqrt2)
	}

	db := AmplitudeToDB([]float64{2e-5, 0}, 2e-5, 1e-5)
	if math.Abs(db[0]) > 1e-9 {
		t.Errorf("ref amplitude = %f dB, want 0", db[0])
	}
	if math.Abs(db[1]-20*math.Log10(0.5)) > 1e-9 {
		t.Errorf("silence = %f dB", db[1])
	}
}
