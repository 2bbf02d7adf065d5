package wavelet

import (
	"fmt"

	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Coefficients is a multi-level decomposition. Details are ordered finest
// level first; Approximation is the coarsest scaling output.
type Coefficients struct {
	Family         string      `json:"family"`
	Details        [][]float64 `json:"details"`
	Approximation  []float64   `json:"approximation"`
	PaddedLength   int         `json:"padded_length"`
	OriginalLength int         `json:"original_length"`
}

// Levels returns the number of detail levels
func (c *Coefficients) Levels() int {
	return len(c.Details)
}

// Clone returns a deep copy
func (c *Coefficients) Clone() *Coefficients {
	out := &Coefficients{
		Family:         c.Family,
		Details:        make([][]float64, len(c.Details)),
		Approximation:  append([]float64(nil), c.Approximation...),
		PaddedLength:   c.PaddedLength,
		OriginalLength: c.OriginalLength,
	}
	for j, d := range c.Details {
		out.Details[j] = append([]float64(nil), d...)
	}
	return out
}

// Decompose runs a levels-deep periodised DWT of samples. The input is
// reflect-padded to a multiple of 2^levels.
func Decompose(samples []float64, family *Family, levels int) (*Coefficients, error) {
	if family == nil {
		return nil, fmt.Errorf("nil wavelet family: %w", audio.ErrConfigMismatch)
	}
	maxLevel := family.MaxLevel(len(samples))
	if levels < 1 || levels > maxLevel {
		return nil, fmt.Errorf("%d levels requested, %s allows 1..%d for %d samples: %w",
			levels, family.Name(), maxLevel, len(samples), audio.ErrInvalidLevelCount)
	}

	block := 1 << levels
	padded := reflectPad(samples, (len(samples)+block-1)/block*block)

	coeffs := &Coefficients{
		Family:         family.Name(),
		Details:        make([][]float64, 0, levels),
		PaddedLength:   len(padded),
		OriginalLength: len(samples),
	}

	current := padded
	for range levels {
		approx, detail := analyze(current, family)
		coeffs.Details = append(coeffs.Details, detail)
		current = approx
	}
	coeffs.Approximation = current

	return coeffs, nil
}

// Reconstruct inverts Decompose and crops to the original length
func Reconstruct(coeffs *Coefficients, family *Family) ([]float64, error) {
	if family == nil || coeffs == nil {
		return nil, fmt.Errorf("nil wavelet family or coefficients: %w", audio.ErrConfigMismatch)
	}
	if coeffs.Family != family.Name() {
		return nil, fmt.Errorf("coefficients are %s, reconstructing with %s: %w",
			coeffs.Family, family.Name(), audio.ErrConfigMismatch)
	}

	current := coeffs.Approximation
	for j := len(coeffs.Details) - 1; j >= 0; j-- {
		detail := coeffs.Details[j]
		if len(detail) != len(current) {
			return nil, fmt.Errorf("level %d has %d details for %d approximation values: %w",
				j+1, len(detail), len(current), audio.ErrConfigMismatch)
		}
		current = synthesize(current, detail, family)
	}

	if len(current) < coeffs.OriginalLength {
		return nil, fmt.Errorf("reconstructed %d samples, expected at least %d: %w",
			len(current), coeffs.OriginalLength, audio.ErrConfigMismatch)
	}
	return current[:coeffs.OriginalLength], nil
}

// analyze computes one level: a[i] = Σ h[k]·x[(2i+k) mod n], d likewise with g
func analyze(x []float64, family *Family) ([]float64, []float64) {
	n := len(x)
	half := n / 2
	approx := make([]float64, half)
	detail := make([]float64, half)

	for i := range half {
		var a, d float64
		for k, h := range family.lowpass {
			v := x[(2*i+k)%n]
			a += h * v
			d += family.highpass[k] * v
		}
		approx[i] = a
		detail[i] = d
	}
	return approx, detail
}

// synthesize is the transpose of analyze
func synthesize(approx, detail []float64, family *Family) []float64 {
	n := len(approx) * 2
	out := make([]float64, n)

	for i := range approx {
		for k, h := range family.lowpass {
			out[(2*i+k)%n] += h*approx[i] + family.highpass[k]*detail[i]
		}
	}
	return out
}

// reflectPad extends x to length by mirroring about the last sample
// (x[n-2], x[n-3], ...), folding again if the pad exceeds the signal
func reflectPad(x []float64, length int) []float64 {
	out := make([]float64, length)
	copy(out, x)

	n := len(x)
	if n == 0 {
		return out
	}
	if n == 1 {
		for i := n; i < length; i++ {
			out[i] = x[0]
		}
		return out
	}

	period := 2 * (n - 1)
	for i := n; i < length; i++ {
		m := i % period
		if m >= n {
			m = period - m
		}
		out[i] = x[m]
	}
	return out
}
