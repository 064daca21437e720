package resampler

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono audio from one fixed sample rate to another. It is
// safe for concurrent use; calls are serialised.
type Resampler struct {
	srcRate int
	dstRate int

	mu sync.Mutex
	rs resampling.Resampler
}

// New creates a Resampler from srcRate to dstRate.
func New(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	r := &Resampler{srcRate: srcRate, dstRate: dstRate}
	if srcRate == dstRate {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.rs = rs
	return r, nil
}

// OutputLen returns the number of samples Process produces for n input
// samples.
func (r *Resampler) OutputLen(n int) int {
	if r.srcRate == r.dstRate {
		return n
	}
	return int(math.Ceil(float64(n) * float64(r.dstRate) / float64(r.srcRate)))
}

// Process resamples a complete signal. The filter is flushed and reset
// afterwards, so each call starts from a clean state. The returned slice
// always has OutputLen(len(in)) samples.
func (r *Resampler) Process(in []float32) ([]float32, error) {
	if r.rs == nil {
		out := make([]float32, len(in))
		copy(out, in)
		return out, nil
	}

	buf := make([]float64, len(in))
	for i, s := range in {
		buf[i] = float64(s)
	}

	r.mu.Lock()
	res, err := r.rs.Process(buf)
	if err == nil {
		var tail []float64
		tail, err = r.rs.Flush()
		res = append(res, tail...)
	}
	r.rs.Reset()
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]float32, r.OutputLen(len(in)))
	for i := range out {
		if i >= len(res) {
			break
		}
		out[i] = float32(res[i])
	}
	return out, nil
}

// Resample is a convenience wrapper that builds a one-shot Resampler.
func Resample(in []float32, srcRate, dstRate int) ([]float32, error) {
	r, err := New(srcRate, dstRate)
	if err != nil {
		return nil, err
	}
	return r.Process(in)
}
