// Package audio groups the signal-processing packages used by crybaby:
//
//   - pcm: sample formats and interleaved int16 chunks
//   - portaudio: microphone capture through PortAudio
//   - wav: reading and writing RIFF/WAVE clips
//   - resampler: sample-rate conversion on io.Reader streams
//   - mel: librosa-compatible mel spectrograms
//
// A recorded clip flows through them in that order:
//
//	stream, _ := portaudio.NewInputStream(pcm.Mono(44100), 1024)
//	clip, _ := wav.ReadFile(path)
//	power := mel.New(mel.DefaultConfig(16000)).Power(samples)
package audio
