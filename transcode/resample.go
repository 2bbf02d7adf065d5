package transcode

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Resample converts signal to targetRate. A signal already at that rate is
// returned as a copy.
func Resample(signal *audio.Signal, targetRate int) (*audio.Signal, error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if targetRate <= 0 {
		return nil, fmt.Errorf("target sample rate must be positive, got %d: %w", targetRate, audio.ErrConfigMismatch)
	}
	if signal.SampleRate == targetRate || signal.Len() == 0 {
		out := signal.Clone()
		out.SampleRate = targetRate
		return out, nil
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(signal.SampleRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := resampler.Process(signal.Samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	output = append(output, tail...)

	if !common.AllFinite(output) {
		return nil, fmt.Errorf("resampler produced non-finite samples: %w", audio.ErrInvalidSignal)
	}
	return &audio.Signal{Samples: output, SampleRate: targetRate}, nil
}
