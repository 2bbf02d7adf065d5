package windowing

import (
	"fmt"
	"math"
)

// Hann is a raised-cosine analysis window. The periodic form sums to a
// constant under 50% overlap, which the overlap-add engines rely on.
type Hann struct {
	size         int
	periodic     bool
	coefficients []float64
}

// NewPeriodicHann creates a periodic Hann window (denominator N), the
// variant used for STFT analysis and overlap-add resynthesis
func NewPeriodicHann(size int) *Hann {
	return newHann(size, true)
}

// NewSymmetricHann creates a symmetric Hann window (denominator N-1)
func NewSymmetricHann(size int) *Hann {
	return newHann(size, false)
}

func newHann(size int, periodic bool) *Hann {
	h := &Hann{
		size:         size,
		periodic:     periodic,
		coefficients: make([]float64, max(size, 0)),
	}

	if size == 1 {
		h.coefficients[0] = 1.0
		return h
	}

	denominator := float64(size - 1)
	if periodic {
		denominator = float64(size)
	}

	for i := range h.coefficients {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
	return h
}

// ApplyTo writes src·w into dst. Both must have the window's length.
func (h *Hann) ApplyTo(dst, src []float64) error {
	if len(src) != h.size || len(dst) != h.size {
		return fmt.Errorf("buffer lengths (%d, %d) don't match window size (%d)", len(dst), len(src), h.size)
	}
	for i, w := range h.coefficients {
		dst[i] = src[i] * w
	}
	return nil
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hann) ApplyInPlace(signal []float64) error {
	return h.ApplyTo(signal, signal)
}

// At returns coefficient i
func (h *Hann) At(i int) float64 {
	return h.coefficients[i]
}

// Coefficients returns a copy of the window coefficients
func (h *Hann) Coefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// Size returns the window size
func (h *Hann) Size() int {
	return h.size
}

// Periodic reports whether the window uses the periodic definition
func (h *Hann) Periodic() bool {
	return h.periodic
}
