package mel

import "math"

// RMS returns the root-mean-square energy of centred frames of frameLen
// samples taken every hop samples. The signal is zero padded by frameLen/2
// on both sides, so there are 1 + len(samples)/hop frames.
func RMS(samples []float32, frameLen, hop int) []float64 {
	if frameLen <= 0 || hop <= 0 {
		return nil
	}
	pad := frameLen / 2
	numFrames := 1 + len(samples)/hop
	out := make([]float64, numFrames)
	for t := range out {
		start := t*hop - pad
		sum := 0.0
		for i := 0; i < frameLen; i++ {
			j := start + i
			if j < 0 || j >= len(samples) {
				continue
			}
			v := float64(samples[j])
			sum += v * v
		}
		out[t] = math.Sqrt(sum / float64(frameLen))
	}
	return out
}

// AmplitudeToDB converts amplitudes to decibels relative to ref:
// 20*log10(max(amin, a)) - 20*log10(max(amin, ref)).
func AmplitudeToDB(amps []float64, ref, amin float64) []float64 {
	offset := 20 * math.Log10(math.Max(amin, ref))
	out := make([]float64, len(amps))
	for i, a := range amps {
		out[i] = 20*math.Log10(math.Max(amin, a)) - offset
	}
	return out
}
