package mel

import "math"

// Slaney mel scale constants: linear below 1 kHz, logarithmic above.
const (
	fSp       = 200.0 / 3
	minLogHz  = 1000.0
	minLogMel = minLogHz / fSp
)

var logStep = math.Log(6.4) / 27

// hannWindow generates a periodic Hann window of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hzToMel converts frequency in Hz to the Slaney mel scale.
func hzToMel(hz float64) float64 {
	if hz < minLogHz {
		return hz / fSp
	}
	return minLogMel + math.Log(hz/minLogHz)/logStep
}

// melToHz converts a Slaney mel value back to Hz.
func melToHz(mel float64) float64 {
	if mel < minLogMel {
		return mel * fSp
	}
	return minLogHz * math.Exp(logStep*(mel-minLogMel))
}

// melFilterBank creates the triangular filterbank with Slaney area
// normalisation. Returns [numMels][halfFFT] where halfFFT = fftSize/2 + 1.
func melFilterBank(numMels, fftSize, sampleRate int, fMin, fMax float64) [][]float64 {
	halfFFT := fftSize/2 + 1

	fftFreqs := make([]float64, halfFFT)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// numMels + 2 equally spaced mel points, in Hz
	lowMel := hzToMel(fMin)
	highMel := hzToMel(fMax)
	melF := make([]float64, numMels+2)
	step := (highMel - lowMel) / float64(numMels+1)
	for i := range melF {
		melF[i] = melToHz(lowMel + float64(i)*step)
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		lowDiff := melF[m+1] - melF[m]
		highDiff := melF[m+2] - melF[m+1]
		enorm := 2 / (melF[m+2] - melF[m])

		filter := make([]float64, halfFFT)
		for k, f := range fftFreqs {
			lower := (f - melF[m]) / lowDiff
			upper := (melF[m+2] - f) / highDiff
			w := math.Min(lower, upper)
			if w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}
