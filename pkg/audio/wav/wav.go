// Package wav reads and writes RIFF/WAVE files as normalised float32 or raw
// int16 samples.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/haivivi/crybaby/pkg/audio/pcm"
)

// ErrInvalidFile is returned when the input is not a readable WAVE file.
var ErrInvalidFile = errors.New("wav: invalid file")

// Audio is decoded audio. Samples are interleaved and scaled to [-1, 1).
type Audio struct {
	Samples    []float32
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frames returns the number of sample frames.
func (a *Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Mono returns the samples averaged down to one channel.
func (a *Audio) Mono() []float32 {
	return pcm.Mixdown(a.Samples, a.Channels)
}

// Decode reads a complete WAVE stream.
func Decode(r io.ReadSeeker) (*Audio, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, ErrInvalidFile
	}

	depth := int(d.BitDepth)
	if depth <= 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 {
		return nil, ErrInvalidFile
	}

	scale := float32(int64(1) << (depth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return &Audio{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   depth,
	}, nil
}

// ReadFile decodes the WAVE file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes interleaved int16 samples as 16-bit PCM.
func Encode(w io.WriteSeeker, format pcm.Format, samples []int16) error {
	enc := gowav.NewEncoder(w, format.SampleRate(), format.Depth(), format.Channels(), 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: format.Channels(),
			SampleRate:  format.SampleRate(),
		},
		Data:           data,
		SourceBitDepth: format.Depth(),
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finalize: %w", err)
	}
	return nil
}

// WriteFile writes int16 samples to path, replacing any existing file.
func WriteFile(path string, format pcm.Format, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, format, samples); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// WriteFloatFile converts normalised samples to 16-bit PCM and writes them.
func WriteFloatFile(path string, format pcm.Format, samples []float32) error {
	return WriteFile(path, format, pcm.Float32ToInt16(samples))
}
