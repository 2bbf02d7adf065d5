package pipeline

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Method names accepted by MethodFromConfig
const (
	MethodStandard           = "standard"
	MethodWavelet            = "wavelet"
	MethodMultiStage         = "multi_stage"
	MethodEnhancedMultiStage = "enhanced_multi_stage"
)

// MethodNames lists every supported method in canonical order
func MethodNames() []string {
	return []string{MethodStandard, MethodWavelet, MethodMultiStage, MethodEnhancedMultiStage}
}

// Method is one of Standard, Wavelet, MultiStage or EnhancedMultiStage.
// The set is closed; Process switches over it exhaustively.
type Method interface {
	Name() string
	isMethod()
}

// Standard runs spectral subtraction only. When Noise is nil the profile is
// taken from the input as Spectral.NoiseSource selects, using VoiceActivity
// to find non-speech runs.
type Standard struct {
	Spectral      SpectralConfig
	VoiceActivity temporal.VADConfig
	Noise         *audio.Signal
}

// Wavelet runs wavelet threshold denoising only
type Wavelet struct {
	Wavelet wavelet.Options
}

// MultiStage runs spectral subtraction followed by wavelet denoising
type MultiStage struct {
	Spectral      SpectralConfig
	Wavelet       wavelet.Options
	VoiceActivity temporal.VADConfig
	Noise         *audio.Signal
}

// EnhancedMultiStage is MultiStage with speech-protected subtraction and
// adaptive gain control on the result
type EnhancedMultiStage struct {
	Spectral      SpectralConfig
	Wavelet       wavelet.Options
	VoiceActivity temporal.VADConfig
	Protection    ProtectionConfig
	AGC           AGCConfig
	Noise         *audio.Signal
}

func (Standard) Name() string           { return MethodStandard }
func (Wavelet) Name() string            { return MethodWavelet }
func (MultiStage) Name() string         { return MethodMultiStage }
func (EnhancedMultiStage) Name() string { return MethodEnhancedMultiStage }

func (Standard) isMethod()           {}
func (Wavelet) isMethod()            {}
func (MultiStage) isMethod()         {}
func (EnhancedMultiStage) isMethod() {}

// MethodFromConfig builds the named method from cfg
func MethodFromConfig(name string, cfg Config) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MethodStandard:
		return Standard{Spectral: cfg.Spectral, VoiceActivity: cfg.VoiceActivity}, nil
	case MethodWavelet:
		return Wavelet{Wavelet: cfg.Wavelet}, nil
	case MethodMultiStage:
		return MultiStage{Spectral: cfg.Spectral, Wavelet: cfg.Wavelet, VoiceActivity: cfg.VoiceActivity}, nil
	case MethodEnhancedMultiStage:
		return EnhancedMultiStage{
			Spectral:      cfg.Spectral,
			Wavelet:       cfg.Wavelet,
			VoiceActivity: cfg.VoiceActivity,
			Protection:    cfg.Protection,
			AGC:           cfg.AGC,
		}, nil
	default:
		return nil, fmt.Errorf("method %q: %w", name, audio.ErrUnsupportedMethod)
	}
}

// WithNoise returns a copy of m that estimates its noise profile from noise
// instead of the input itself. Methods without a spectral stage are
// returned unchanged.
func WithNoise(m Method, noise *audio.Signal) Method {
	switch v := m.(type) {
	case Standard:
		v.Noise = noise
		return v
	case MultiStage:
		v.Noise = noise
		return v
	case EnhancedMultiStage:
		v.Noise = noise
		return v
	default:
		return m
	}
}
