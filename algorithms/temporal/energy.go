package temporal

import (
	"math"
)

// Energy computes frame-based short-term energy features
type Energy struct {
	frameSize int
	hopSize   int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize int) *Energy {
	return &Energy{
		frameSize: max(frameSize, 1),
		hopSize:   max(hopSize, 1),
	}
}

// FrameCount returns the number of analysis frames for a signal of n samples.
// A signal shorter than one frame is analysed as a single frame; trailing
// samples that do not fill a whole frame are dropped otherwise.
func (e *Energy) FrameCount(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= e.frameSize {
		return 1
	}
	return (n-e.frameSize)/e.hopSize + 1
}

// FrameBounds returns the [start, end) sample range of frame i
func (e *Energy) FrameBounds(i, n int) (int, int) {
	start := i * e.hopSize
	return start, min(start+e.frameSize, n)
}

// ComputeShortTimeEnergy calculates the RMS of every frame
func (e *Energy) ComputeShortTimeEnergy(signal []float64) []float64 {
	numFrames := e.FrameCount(len(signal))
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start, end := e.FrameBounds(i, len(signal))

		sumSquares := 0.0
		for j := start; j < end; j++ {
			sumSquares += signal[j] * signal[j]
		}
		energies[i] = math.Sqrt(sumSquares / float64(end-start))
	}

	return energies
}

// ComputeZeroCrossingRate returns the per-frame zero crossing rate normalised
// by the maximum possible crossings (0..1)
func (e *Energy) ComputeZeroCrossingRate(signal []float64) []float64 {
	numFrames := e.FrameCount(len(signal))
	zcrValues := make([]float64, numFrames)

	for i := range numFrames {
		start, end := e.FrameBounds(i, len(signal))
		if end-start < 2 {
			continue
		}

		crossings := 0
		for j := start + 1; j < end; j++ {
			if (signal[j-1] >= 0 && signal[j] < 0) || (signal[j-1] < 0 && signal[j] >= 0) {
				crossings++
			}
		}
		zcrValues[i] = float64(crossings) / float64(end-start-1)
	}

	return zcrValues
}

// FrameSize returns the frame length in samples
func (e *Energy) FrameSize() int {
	return e.frameSize
}

// HopSize returns the hop length in samples
func (e *Energy) HopSize() int {
	return e.hopSize
}
