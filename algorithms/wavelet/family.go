// Package wavelet implements periodised orthogonal discrete wavelet
// transforms and threshold denoising of their detail coefficients.
package wavelet

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Supported wavelet family names
const (
	Haar = "haar"
	DB2  = "db2"
	DB4  = "db4"
)

// Family is an orthogonal wavelet described by its scaling (low-pass) filter
type Family struct {
	name     string
	lowpass  []float64
	highpass []float64
}

var db4Lowpass = []float64{
	0.23037781330885523,
	0.7148465705525415,
	0.6308807679295904,
	-0.02798376941698385,
	-0.18703481171888114,
	0.030841381835986965,
	0.032883011666982945,
	-0.010597401784997278,
}

// FamilyByName returns the named family. "db1" is accepted for haar.
func FamilyByName(name string) (*Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Haar, "db1":
		return newFamily(Haar, []float64{1 / math.Sqrt2, 1 / math.Sqrt2}), nil
	case DB2:
		s3 := math.Sqrt(3)
		d := 4 * math.Sqrt2
		return newFamily(DB2, []float64{(1 + s3) / d, (3 + s3) / d, (3 - s3) / d, (1 - s3) / d}), nil
	case DB4:
		return newFamily(DB4, db4Lowpass), nil
	default:
		return nil, fmt.Errorf("unknown wavelet family %q: %w", name, audio.ErrConfigMismatch)
	}
}

// newFamily derives the quadrature mirror high-pass g[k] = (-1)^k h[L-1-k]
func newFamily(name string, lowpass []float64) *Family {
	L := len(lowpass)
	h := make([]float64, L)
	copy(h, lowpass)

	g := make([]float64, L)
	for k := range g {
		g[k] = h[L-1-k]
		if k%2 == 1 {
			g[k] = -g[k]
		}
	}

	return &Family{name: name, lowpass: h, highpass: g}
}

// Name returns the canonical family name
func (f *Family) Name() string {
	return f.name
}

// FilterLength returns the number of filter taps
func (f *Family) FilterLength() int {
	return len(f.lowpass)
}

// MaxLevel returns the deepest decomposition allowed for n samples,
// floor(log2(n / (L-1))), or 0 when n is too short for a single level
func (f *Family) MaxLevel(n int) int {
	ratio := float64(n) / float64(f.FilterLength()-1)
	if ratio < 2 {
		return 0
	}
	return int(math.Floor(math.Log2(ratio)))
}
