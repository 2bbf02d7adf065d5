package wavelet

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// ThresholdMode selects how detail coefficients are shrunk
type ThresholdMode string

const (
	// Soft shrinks every coefficient toward zero by the threshold
	Soft ThresholdMode = "soft"
	// Hard zeroes coefficients below the threshold and keeps the rest
	Hard ThresholdMode = "hard"
)

// ParseThresholdMode validates a mode name
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch ThresholdMode(s) {
	case Soft, Hard:
		return ThresholdMode(s), nil
	default:
		return "", fmt.Errorf("unknown threshold mode %q: %w", s, audio.ErrConfigMismatch)
	}
}

// NoiseEstimate selects where the noise level σ is measured
type NoiseEstimate string

const (
	// PerLevel estimates σ separately for each detail level
	PerLevel NoiseEstimate = "level"
	// FinestLevel uses σ of the finest detail level for every level
	FinestLevel NoiseEstimate = "finest"
)

// madToSigma converts a median absolute deviation to a Gaussian σ
const madToSigma = 0.6745

// UniversalThresholds returns scale·σ_j·sqrt(2·ln n) per detail level, with
// σ_j = median(|d_j|)/0.6745 and n the original signal length
func UniversalThresholds(coeffs *Coefficients, scale float64, estimate NoiseEstimate) ([]float64, error) {
	if estimate != PerLevel && estimate != FinestLevel {
		return nil, fmt.Errorf("unknown noise estimate %q: %w", estimate, audio.ErrConfigMismatch)
	}

	universal := 0.0
	if coeffs.OriginalLength > 1 {
		universal = math.Sqrt(2 * math.Log(float64(coeffs.OriginalLength)))
	}

	thresholds := make([]float64, len(coeffs.Details))
	finestSigma := 0.0
	if len(coeffs.Details) > 0 {
		finestSigma = common.MedianAbs(coeffs.Details[0]) / madToSigma
	}

	for j, detail := range coeffs.Details {
		sigma := finestSigma
		if estimate == PerLevel {
			sigma = common.MedianAbs(detail) / madToSigma
		}
		thresholds[j] = scale * sigma * universal
	}
	return thresholds, nil
}

// Threshold returns a copy of coeffs with each detail level shrunk by its
// threshold. The approximation is never modified.
func Threshold(coeffs *Coefficients, thresholds []float64, mode ThresholdMode) (*Coefficients, error) {
	if len(thresholds) != len(coeffs.Details) {
		return nil, fmt.Errorf("%d thresholds for %d levels: %w", len(thresholds), len(coeffs.Details), audio.ErrConfigMismatch)
	}

	var shrink func(c, t float64) float64
	switch mode {
	case Soft:
		shrink = softThreshold
	case Hard:
		shrink = hardThreshold
	default:
		return nil, fmt.Errorf("unknown threshold mode %q: %w", mode, audio.ErrConfigMismatch)
	}

	out := coeffs.Clone()
	for j, detail := range out.Details {
		t := thresholds[j]
		for i, c := range detail {
			detail[i] = shrink(c, t)
		}
	}
	return out, nil
}

func softThreshold(c, t float64) float64 {
	mag := math.Abs(c) - t
	if mag <= 0 {
		return 0
	}
	return math.Copysign(mag, c)
}

func hardThreshold(c, t float64) float64 {
	if math.Abs(c) >= t {
		return c
	}
	return 0
}
