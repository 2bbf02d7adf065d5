package audio

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestNewSignalValidation(t *testing.T) {
	tests := []struct {
		name       string
		samples    []float64
		sampleRate int
		wantErr    bool
	}{
		{"valid", []float64{0, 0.5, -0.5}, 16000, false},
		{"empty is valid", nil, 16000, false},
		{"zero rate", []float64{0}, 0, true},
		{"negative rate", []float64{0}, -1, true},
		{"NaN sample", []float64{0, math.NaN()}, 16000, true},
		{"Inf sample", []float64{math.Inf(1)}, 16000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSignal(tt.samples, tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSignal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSignal) {
				t.Errorf("expected ErrInvalidSignal, got %v", err)
			}
		})
	}
}

func TestNewSignalCopiesInput(t *testing.T) {
	in := []float64{1, 2, 3}
	s, err := NewSignal(in, 8000)
	if err != nil {
		t.Fatalf("NewSignal failed: %v", err)
	}
	in[0] = 42
	if s.Samples[0] != 1 {
		t.Errorf("signal shares backing array with input")
	}
}

func TestSliceAndLeading(t *testing.T) {
	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = float64(i)
	}
	s := &Signal{Samples: samples, SampleRate: 16000}

	lead := s.Leading(100)
	if lead.Len() != 1600 {
		t.Fatalf("Leading(100ms) length = %d, want 1600", lead.Len())
	}
	if lead.Samples[1599] != 1599 {
		t.Errorf("unexpected last sample %v", lead.Samples[1599])
	}

	clamped := s.Slice(15990, 20000)
	if clamped.Len() != 10 {
		t.Errorf("clamped slice length = %d, want 10", clamped.Len())
	}

	if got := s.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("profile: %w", ErrConfigMismatch)
	if got := Kind(wrapped); got != "config_mismatch" {
		t.Errorf("Kind() = %q", got)
	}
	if got := Kind(errors.New("boom")); got != "internal" {
		t.Errorf("Kind() = %q, want internal", got)
	}
	if got := Kind(nil); got != "" {
		t.Errorf("Kind(nil) = %q", got)
	}
}
