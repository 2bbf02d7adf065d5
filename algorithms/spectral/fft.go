package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT is a transform context of a fixed size. Each engine call builds its own;
// nothing about a transform is shared between calls.
type FFT struct {
	size int
}

// NewFFT creates a transform context for frames of size samples
func NewFFT(size int) *FFT {
	return &FFT{size: size}
}

// Size returns the transform length
func (f *FFT) Size() int {
	return f.size
}

// Forward zero-pads (or truncates) x to the context size and returns the full
// complex spectrum using mjibson/go-dsp
func (f *FFT) Forward(x []float64) []complex128 {
	if f.size <= 0 {
		return []complex128{}
	}

	if len(x) == f.size {
		return fft.FFTReal(x)
	}

	padded := make([]float64, f.size)
	copy(padded, x)
	return fft.FFTReal(padded)
}

// InverseReal computes the inverse FFT and returns the real part only
func (f *FFT) InverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}
