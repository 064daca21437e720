package pcm

import (
	"fmt"
	"math"
	"time"
)

var (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K = Mono(16000)
	// L16Mono44K1 represents audio/L16; rate=44100; channels=1
	L16Mono44K1 = Mono(44100)
)

// Format represents a 16-bit interleaved PCM configuration.
type Format struct {
	rate     int
	channels int
}

// New returns a format with the given sample rate and channel count. It
// panics on non-positive values, the same way an invalid enum did before.
func New(sampleRate, channels int) Format {
	if sampleRate <= 0 || channels <= 0 {
		panic("pcm: invalid audio format")
	}
	return Format{rate: sampleRate, channels: channels}
}

// Mono returns a single channel format at the given sample rate.
func Mono(sampleRate int) Format {
	return New(sampleRate, 1)
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	return f.rate
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	return f.channels
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	return 16
}

// Samples returns the number of frames in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.channels) / int64(f.Depth())
}

// SamplesInDuration returns the number of frames in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.rate) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.channels) * int64(f.Depth()) / 8
}

// Duration returns the duration of the given number of frames.
func (f Format) Duration(frames int64) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(f.rate)
}

// BuffersInDuration returns how many reads of framesPerBuffer frames cover
// d, rounding up so the capture is never shorter than d.
func (f Format) BuffersInDuration(framesPerBuffer int, d time.Duration) int {
	if framesPerBuffer <= 0 {
		return 0
	}
	return int(math.Ceil(float64(f.rate) / float64(framesPerBuffer) * d.Seconds()))
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.rate * f.channels * f.Depth() / 8
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.rate, f.channels)
}
