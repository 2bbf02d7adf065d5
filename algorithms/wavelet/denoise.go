package wavelet

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Options configures wavelet denoising
type Options struct {
	Family         string        `json:"family" yaml:"family"`
	Levels         int           `json:"levels" yaml:"levels"`
	Mode           ThresholdMode `json:"threshold_mode" yaml:"threshold_mode"`
	ThresholdScale float64       `json:"threshold_scale" yaml:"threshold_scale"`
	NoiseEstimate  NoiseEstimate `json:"noise_estimate" yaml:"noise_estimate"`
}

// DefaultOptions returns db4, 4 levels, soft universal thresholds
func DefaultOptions() Options {
	return Options{
		Family:         DB4,
		Levels:         4,
		Mode:           Soft,
		ThresholdScale: 1.0,
		NoiseEstimate:  PerLevel,
	}
}

// Validate checks everything that does not depend on the signal length
func (o Options) Validate() error {
	if _, err := FamilyByName(o.Family); err != nil {
		return err
	}
	if _, err := ParseThresholdMode(string(o.Mode)); err != nil {
		return err
	}
	if o.NoiseEstimate != PerLevel && o.NoiseEstimate != FinestLevel {
		return fmt.Errorf("unknown noise estimate %q: %w", o.NoiseEstimate, audio.ErrConfigMismatch)
	}
	if o.ThresholdScale < 0 || math.IsNaN(o.ThresholdScale) {
		return fmt.Errorf("threshold scale must be >= 0, got %v: %w", o.ThresholdScale, audio.ErrConfigMismatch)
	}
	if o.Levels < 1 {
		return fmt.Errorf("levels must be >= 1, got %d: %w", o.Levels, audio.ErrInvalidLevelCount)
	}
	return nil
}

// Denoise decomposes signal, shrinks the detail coefficients with
// universal thresholds and reconstructs a signal of the same length
func Denoise(signal *audio.Signal, opts Options) (*audio.Signal, error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	family, _ := FamilyByName(opts.Family)

	coeffs, err := Decompose(signal.Samples, family, opts.Levels)
	if err != nil {
		return nil, err
	}

	thresholds, err := UniversalThresholds(coeffs, opts.ThresholdScale, opts.NoiseEstimate)
	if err != nil {
		return nil, err
	}

	shrunk, err := Threshold(coeffs, thresholds, opts.Mode)
	if err != nil {
		return nil, err
	}

	samples, err := Reconstruct(shrunk, family)
	if err != nil {
		return nil, err
	}

	if !common.AllFinite(samples) {
		return nil, fmt.Errorf("wavelet reconstruction produced non-finite samples: %w", audio.ErrInvalidSignal)
	}

	return signal.WithSamples(samples), nil
}
