// Package resampler converts mono float32 audio between sample rates using
// a pure Go polyphase resampler (no CGO/FFI dependencies).
//
// Output length is fixed to ceil(n * dst / src) samples so callers can rely
// on durations surviving the conversion.
//
// Example usage:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//	if err != nil {
//	    log.Fatal(err)
//	}
package resampler
