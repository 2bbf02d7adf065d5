package spectral

import (
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-denoise/algorithms/windowing"
)

// STFT computes full-length magnitude spectra of overlapping windowed frames
type STFT struct {
	params FrameParams
	window *windowing.Hann
}

// NewSTFT creates an STFT calculator for the given framing
func NewSTFT(params FrameParams) *STFT {
	return &STFT{
		params: params,
		window: windowing.NewPeriodicHann(params.FrameLength),
	}
}

// Magnitudes returns one magnitude spectrum (FFTSize bins) per frame.
// A signal shorter than one frame yields a single rectangular, zero-padded
// frame, matching how the subtraction engine treats short input.
func (s *STFT) Magnitudes(signal []float64) [][]float64 {
	if len(signal) == 0 {
		return [][]float64{}
	}

	if len(signal) < s.params.FrameLength {
		spectrum := NewFFT(s.params.FFTSize).Forward(signal)
		return [][]float64{magnitudesOf(spectrum)}
	}

	numFrames := (len(signal)-s.params.FrameLength)/s.params.HopLength + 1
	magnitudes := make([][]float64, numFrames)

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// each worker owns its transform context and frame buffer
			transform := NewFFT(s.params.FFTSize)
			frameBuffer := make([]float64, s.params.FrameLength)

			for frameIdx := range jobs {
				start := frameIdx * s.params.HopLength
				_ = s.window.ApplyTo(frameBuffer, signal[start:start+s.params.FrameLength])
				magnitudes[frameIdx] = magnitudesOf(transform.Forward(frameBuffer))
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	return magnitudes
}

func magnitudesOf(spectrum []complex128) []float64 {
	mags := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
