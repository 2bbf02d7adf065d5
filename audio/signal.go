// Package audio holds the mono signal type passed between the denoising
// engines and the error kinds they report.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Signal is a mono buffer of samples at a fixed sample rate.
// Stages never modify a Signal they receive; each returns a new one.
type Signal struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// NewSignal copies samples into a new Signal and validates it
func NewSignal(samples []float64, sampleRate int) (*Signal, error) {
	s := &Signal{
		Samples:    make([]float64, len(samples)),
		SampleRate: sampleRate,
	}
	copy(s.Samples, samples)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the sample rate and that every sample is finite
func (s *Signal) Validate() error {
	if s == nil {
		return fmt.Errorf("nil signal: %w", ErrInvalidSignal)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d: %w", s.SampleRate, ErrInvalidSignal)
	}
	for i, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite sample at index %d: %w", i, ErrInvalidSignal)
		}
	}
	return nil
}

// Len returns the number of samples
func (s *Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the signal length as a time.Duration
func (s *Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Clone returns a deep copy
func (s *Signal) Clone() *Signal {
	samples := make([]float64, len(s.Samples))
	copy(samples, s.Samples)
	return &Signal{Samples: samples, SampleRate: s.SampleRate}
}

// WithSamples returns a new Signal at the same rate that owns samples
func (s *Signal) WithSamples(samples []float64) *Signal {
	return &Signal{Samples: samples, SampleRate: s.SampleRate}
}

// Slice returns a copy of samples [start, end), clamped to the signal bounds
func (s *Signal) Slice(start, end int) *Signal {
	start = max(0, min(start, len(s.Samples)))
	end = max(start, min(end, len(s.Samples)))

	samples := make([]float64, end-start)
	copy(samples, s.Samples[start:end])
	return &Signal{Samples: samples, SampleRate: s.SampleRate}
}

// MsToSamples converts a duration in milliseconds to a sample count at the signal's rate
func (s *Signal) MsToSamples(ms float64) int {
	return MsToSamples(ms, s.SampleRate)
}

// Leading returns a copy of the first ms milliseconds of the signal
func (s *Signal) Leading(ms float64) *Signal {
	return s.Slice(0, s.MsToSamples(ms))
}

// MsToSamples converts milliseconds to samples, rounding to the nearest sample
func MsToSamples(ms float64, sampleRate int) int {
	return int(math.Round(ms * float64(sampleRate) / 1000.0))
}
