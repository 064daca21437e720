// Package pcm provides types and utilities for working with 16-bit PCM
// (Pulse Code Modulation) audio data.
//
// Key types and helpers:
//   - Format: sample rate and channel count of interleaved int16 audio
//   - Int16ToFloat32 / Float32ToInt16: sample conversion between the
//     integer wire form and the normalised [-1, 1) form used for analysis
//   - Mixdown: average interleaved channels into a mono signal
//
// Example usage:
//
//	// 44.1kHz mono capture format
//	format := pcm.Mono(44100)
//
//	// Number of 1024-frame buffers needed for four seconds
//	n := format.BuffersInDuration(1024, 4*time.Second)
//
//	// Normalise captured samples
//	f := pcm.Int16ToFloat32(samples)
package pcm
