package evaluation

import (
	"fmt"

	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Standards are the compliance thresholds a processed file must meet
type Standards struct {
	MinRMSDB          float64 `json:"rms_db" yaml:"rms_db"`
	MaxPeakDB         float64 `json:"peak_db" yaml:"peak_db"`
	MaxCV             float64 `json:"cv" yaml:"cv"`
	MinSNR            float64 `json:"snr" yaml:"snr"`
	MaxNonSpeechRatio float64 `json:"non_speech_ratio" yaml:"non_speech_ratio"`
	MaxSilenceSeconds float64 `json:"max_silence" yaml:"max_silence"`
}

// DefaultStandards returns the broadcast-style defaults
func DefaultStandards() Standards {
	return Standards{
		MinRMSDB:          -30,
		MaxPeakDB:         0,
		MaxCV:             0.5,
		MinSNR:            20,
		MaxNonSpeechRatio: 0.3,
		MaxSilenceSeconds: 1.0,
	}
}

// Config controls metric computation
type Config struct {
	// NoiseSegmentMs is the leading noise-only segment used for SNR when
	// no clean reference is available
	NoiseSegmentMs float64 `json:"noise_segment_ms" yaml:"noise_segment_ms"`
	// EnvelopeFrameMs and EnvelopeHopMs frame the RMS envelope used for CV
	EnvelopeFrameMs float64            `json:"envelope_frame_ms" yaml:"envelope_frame_ms"`
	EnvelopeHopMs   float64            `json:"envelope_hop_ms" yaml:"envelope_hop_ms"`
	VoiceActivity   temporal.VADConfig `json:"voice_activity" yaml:"voice_activity"`
	Standards       Standards          `json:"standards" yaml:"standards"`
}

// DefaultConfig returns 100 ms noise segments and a 20/10 ms envelope
func DefaultConfig() Config {
	return Config{
		NoiseSegmentMs:  100,
		EnvelopeFrameMs: 20,
		EnvelopeHopMs:   10,
		VoiceActivity:   temporal.DefaultVADConfig(),
		Standards:       DefaultStandards(),
	}
}

// Validate checks durations and the voice-activity settings
func (c Config) Validate() error {
	if c.NoiseSegmentMs <= 0 {
		return fmt.Errorf("noise_segment_ms must be positive, got %v: %w", c.NoiseSegmentMs, audio.ErrConfigMismatch)
	}
	if c.EnvelopeFrameMs <= 0 || c.EnvelopeHopMs <= 0 || c.EnvelopeHopMs > c.EnvelopeFrameMs {
		return fmt.Errorf("envelope frame/hop %v/%v ms invalid: %w", c.EnvelopeFrameMs, c.EnvelopeHopMs, audio.ErrConfigMismatch)
	}
	if err := c.VoiceActivity.Validate(); err != nil {
		return fmt.Errorf("voice_activity: %w", err)
	}
	return nil
}
