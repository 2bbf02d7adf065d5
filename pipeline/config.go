package pipeline

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-denoise/algorithms/spectral"
	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Noise sources for methods that estimate the profile from the input itself
const (
	// NoiseSourceNonSpeech averages every non-speech run the voice-activity
	// detector finds, falling back to the leading segment when none fills a
	// frame
	NoiseSourceNonSpeech = "non_speech"

	// NoiseSourceLeading uses the first NoiseSegmentMs of the input
	NoiseSourceLeading = "leading"
)

// SpectralConfig holds the spectral subtraction parameters
type SpectralConfig struct {
	FrameLength     int     `json:"frame_length" yaml:"frame_length"`
	HopLength       int     `json:"hop_length" yaml:"hop_length"`
	FFTSize         int     `json:"fft_size" yaml:"fft_size"`
	OverSubtraction float64 `json:"over_subtraction" yaml:"over_subtraction"`
	SpectralFloor   float64 `json:"spectral_floor" yaml:"spectral_floor"`
	NoiseSegmentMs  float64 `json:"noise_segment_ms" yaml:"noise_segment_ms"`
	NoiseSource     string  `json:"noise_source" yaml:"noise_source"`
}

// FrameParams returns the framing portion of the config
func (c SpectralConfig) FrameParams() spectral.FrameParams {
	return spectral.FrameParams{
		FrameLength: c.FrameLength,
		HopLength:   c.HopLength,
		FFTSize:     c.FFTSize,
	}
}

// Validate checks framing and subtraction parameters
func (c SpectralConfig) Validate() error {
	if err := c.FrameParams().Validate(); err != nil {
		return err
	}
	if c.OverSubtraction < 0 || math.IsNaN(c.OverSubtraction) {
		return fmt.Errorf("over_subtraction must be >= 0, got %v: %w", c.OverSubtraction, audio.ErrConfigMismatch)
	}
	if c.SpectralFloor < 0 || c.SpectralFloor > 1 {
		return fmt.Errorf("spectral_floor must be in [0, 1], got %v: %w", c.SpectralFloor, audio.ErrConfigMismatch)
	}
	if c.NoiseSegmentMs <= 0 {
		return fmt.Errorf("noise_segment_ms must be positive, got %v: %w", c.NoiseSegmentMs, audio.ErrConfigMismatch)
	}
	switch c.NoiseSource {
	case NoiseSourceNonSpeech, NoiseSourceLeading:
	default:
		return fmt.Errorf("noise_source must be %q or %q, got %q: %w",
			NoiseSourceNonSpeech, NoiseSourceLeading, c.NoiseSource, audio.ErrConfigMismatch)
	}
	return nil
}

// ProtectionConfig controls how strongly speech frames are spared
type ProtectionConfig struct {
	// SpeechFactorRatio scales the over-subtraction factor on speech frames
	SpeechFactorRatio float64 `json:"speech_factor_ratio" yaml:"speech_factor_ratio"`
}

// Validate checks the ratio lies in [0, 1]
func (c ProtectionConfig) Validate() error {
	if c.SpeechFactorRatio < 0 || c.SpeechFactorRatio > 1 || math.IsNaN(c.SpeechFactorRatio) {
		return fmt.Errorf("speech_factor_ratio must be in [0, 1], got %v: %w", c.SpeechFactorRatio, audio.ErrConfigMismatch)
	}
	return nil
}

// AGCConfig configures the adaptive gain stage
type AGCConfig struct {
	TargetDBFS    float64 `json:"target_dbfs" yaml:"target_dbfs"`
	MinGainDB     float64 `json:"min_gain_db" yaml:"min_gain_db"`
	MaxGainDB     float64 `json:"max_gain_db" yaml:"max_gain_db"`
	FrameMs       float64 `json:"frame_ms" yaml:"frame_ms"`
	Smoothing     float64 `json:"smoothing" yaml:"smoothing"`
	SilenceGateDB float64 `json:"silence_gate_db" yaml:"silence_gate_db"`
	PeakCeiling   float64 `json:"peak_ceiling" yaml:"peak_ceiling"`
}

// Validate checks gain bounds, smoothing and ceiling
func (c AGCConfig) Validate() error {
	switch {
	case c.TargetDBFS >= 0:
		return fmt.Errorf("target_dbfs must be below 0, got %v: %w", c.TargetDBFS, audio.ErrConfigMismatch)
	case c.MinGainDB > c.MaxGainDB:
		return fmt.Errorf("min_gain_db %v exceeds max_gain_db %v: %w", c.MinGainDB, c.MaxGainDB, audio.ErrConfigMismatch)
	case c.FrameMs <= 0:
		return fmt.Errorf("agc frame_ms must be positive, got %v: %w", c.FrameMs, audio.ErrConfigMismatch)
	case c.Smoothing < 0 || c.Smoothing >= 1:
		return fmt.Errorf("smoothing must be in [0, 1), got %v: %w", c.Smoothing, audio.ErrConfigMismatch)
	case c.PeakCeiling <= 0 || c.PeakCeiling > 1:
		return fmt.Errorf("peak_ceiling must be in (0, 1], got %v: %w", c.PeakCeiling, audio.ErrConfigMismatch)
	}
	return nil
}

// Config gathers the parameters of every method. MethodFromConfig picks the
// parts a given method needs.
type Config struct {
	Spectral      SpectralConfig     `json:"spectral" yaml:"spectral"`
	Wavelet       wavelet.Options    `json:"wavelet" yaml:"wavelet"`
	VoiceActivity temporal.VADConfig `json:"voice_activity" yaml:"voice_activity"`
	Protection    ProtectionConfig   `json:"protection" yaml:"protection"`
	AGC           AGCConfig          `json:"agc" yaml:"agc"`
}

// DefaultConfig returns the parameters used when nothing is configured
func DefaultConfig() Config {
	frames := spectral.DefaultFrameParams()
	return Config{
		Spectral: SpectralConfig{
			FrameLength:     frames.FrameLength,
			HopLength:       frames.HopLength,
			FFTSize:         frames.FFTSize,
			OverSubtraction: 1.0,
			SpectralFloor:   0.01,
			NoiseSegmentMs:  100,
			NoiseSource:     NoiseSourceNonSpeech,
		},
		Wavelet:       wavelet.DefaultOptions(),
		VoiceActivity: temporal.DefaultVADConfig(),
		Protection: ProtectionConfig{
			SpeechFactorRatio: 0.5,
		},
		AGC: AGCConfig{
			TargetDBFS:    -20,
			MinGainDB:     -12,
			MaxGainDB:     12,
			FrameMs:       20,
			Smoothing:     0.8,
			SilenceGateDB: -50,
			PeakCeiling:   0.99,
		},
	}
}

// Validate checks every section
func (c Config) Validate() error {
	if err := c.Spectral.Validate(); err != nil {
		return fmt.Errorf("spectral: %w", err)
	}
	if err := c.Wavelet.Validate(); err != nil {
		return fmt.Errorf("wavelet: %w", err)
	}
	if err := c.VoiceActivity.Validate(); err != nil {
		return fmt.Errorf("voice_activity: %w", err)
	}
	if err := c.Protection.Validate(); err != nil {
		return fmt.Errorf("protection: %w", err)
	}
	if err := c.AGC.Validate(); err != nil {
		return fmt.Errorf("agc: %w", err)
	}
	return nil
}
