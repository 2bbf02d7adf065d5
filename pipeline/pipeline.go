// Package pipeline composes the spectral and wavelet engines into the
// standard, wavelet, multi_stage and enhanced_multi_stage methods.
package pipeline

import (
	"fmt"

	"github.com/RyanBlaney/sonido-denoise/algorithms/spectral"
	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/logging"
)

// Composer runs a Method over a signal. It holds no per-call state and is
// safe for concurrent use.
type Composer struct {
	logger logging.Logger
}

// NewComposer creates a composer that logs through the global logger
func NewComposer() *Composer {
	return &Composer{
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline_composer",
		}),
	}
}

// Process runs method over signal with a default Composer
func Process(signal *audio.Signal, method Method) (*audio.Signal, error) {
	return NewComposer().Process(signal, method)
}

// Process dispatches on the method variant. Engine errors are returned
// wrapped but otherwise unchanged.
func (c *Composer) Process(signal *audio.Signal, method Method) (*audio.Signal, error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}

	switch m := method.(type) {
	case Standard:
		return c.spectralPass(signal, m.Spectral, noiseSource{noise: m.Noise, vad: m.VoiceActivity}, nil)

	case Wavelet:
		return c.waveletPass(signal, m.Wavelet)

	case MultiStage:
		stage1, err := c.spectralPass(signal, m.Spectral, noiseSource{noise: m.Noise, vad: m.VoiceActivity}, nil)
		if err != nil {
			return nil, err
		}
		return c.waveletPass(stage1, m.Wavelet)

	case EnhancedMultiStage:
		return c.enhanced(signal, m)

	default:
		return nil, fmt.Errorf("method %T: %w", method, audio.ErrUnsupportedMethod)
	}
}

func (c *Composer) enhanced(signal *audio.Signal, m EnhancedMultiStage) (*audio.Signal, error) {
	if err := m.Protection.Validate(); err != nil {
		return nil, err
	}

	vad, err := temporal.NewVoiceActivityDetector(m.VoiceActivity)
	if err != nil {
		return nil, fmt.Errorf("voice activity: %w", err)
	}
	activity, err := vad.Detect(signal)
	if err != nil {
		return nil, fmt.Errorf("voice activity: %w", err)
	}

	c.logger.Debug("Speech map computed", logging.Fields{
		"frames":           len(activity.Speech),
		"non_speech_ratio": activity.NonSpeechRatio(),
	})

	factorAt := speechProtectedFactor(activity, m.Spectral.OverSubtraction, m.Protection)
	src := noiseSource{noise: m.Noise, vad: m.VoiceActivity, activity: activity}
	stage1, err := c.spectralPass(signal, m.Spectral, src, factorAt)
	if err != nil {
		return nil, err
	}

	stage2, err := c.waveletPass(stage1, m.Wavelet)
	if err != nil {
		return nil, err
	}

	out, err := ApplyGainControl(stage2, m.AGC)
	if err != nil {
		return nil, fmt.Errorf("gain control: %w", err)
	}

	c.logger.Debug("Gain control applied", logging.Fields{
		"target_dbfs": m.AGC.TargetDBFS,
	})
	return out, nil
}

// noiseSource says where a spectral pass takes its noise profile from. An
// explicit noise recording wins; otherwise the input itself is used.
type noiseSource struct {
	noise    *audio.Signal
	vad      temporal.VADConfig
	activity *temporal.Activity
}

// spectralPass estimates the noise profile and runs spectral subtraction.
// A nil factorAt uses cfg.OverSubtraction for every frame.
func (c *Composer) spectralPass(signal *audio.Signal, cfg SpectralConfig, src noiseSource, factorAt spectral.FactorFunc) (*audio.Signal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spectral subtraction: %w", err)
	}

	profile, err := c.noiseProfile(signal, cfg, src)
	if err != nil {
		return nil, fmt.Errorf("noise profile: %w", err)
	}

	subtractor, err := spectral.NewSubtractor(cfg.FrameParams())
	if err != nil {
		return nil, fmt.Errorf("spectral subtraction: %w", err)
	}

	var out *audio.Signal
	if factorAt == nil {
		out, err = subtractor.Denoise(signal, profile, cfg.OverSubtraction, cfg.SpectralFloor)
	} else {
		out, err = subtractor.DenoiseAdaptive(signal, profile, factorAt, cfg.SpectralFloor)
	}
	if err != nil {
		return nil, fmt.Errorf("spectral subtraction: %w", err)
	}

	c.logger.Debug("Spectral subtraction complete", logging.Fields{
		"samples":        out.Len(),
		"profile_frames": profile.Frames,
		"adaptive":       factorAt != nil,
	})
	return out, nil
}

// noiseProfile builds the profile a spectral pass subtracts. A profile taken
// from the input itself has its tonal components rejected.
func (c *Composer) noiseProfile(signal *audio.Signal, cfg SpectralConfig, src noiseSource) (*spectral.NoiseProfile, error) {
	params := cfg.FrameParams()

	if src.noise != nil {
		if src.noise.SampleRate != signal.SampleRate {
			return nil, fmt.Errorf("noise sample rate %d differs from signal rate %d: %w",
				src.noise.SampleRate, signal.SampleRate, audio.ErrConfigMismatch)
		}
		return spectral.EstimateNoiseProfile(src.noise, params)
	}

	var profile *spectral.NoiseProfile
	if cfg.NoiseSource == NoiseSourceNonSpeech {
		segments, err := c.nonSpeechSegments(signal, src, params.FrameLength)
		if err != nil {
			return nil, err
		}

		if len(segments) > 0 {
			profile, err = spectral.EstimateNoiseProfileFromSegments(segments, params)
			if err != nil {
				return nil, err
			}
		} else {
			c.logger.Debug("No non-speech run fills a frame, using leading segment", logging.Fields{
				"noise_segment_ms": cfg.NoiseSegmentMs,
			})
		}
	}

	if profile == nil {
		var err error
		profile, err = spectral.ProfileFromLeading(signal, cfg.NoiseSegmentMs, params)
		if err != nil {
			return nil, err
		}
	}

	return profile.RejectTonal(spectral.TonalRejectionWidth(params)), nil
}

// nonSpeechSegments cuts out every non-speech run of at least minSamples
func (c *Composer) nonSpeechSegments(signal *audio.Signal, src noiseSource, minSamples int) ([]*audio.Signal, error) {
	activity := src.activity
	if activity == nil {
		vad, err := temporal.NewVoiceActivityDetector(src.vad)
		if err != nil {
			return nil, fmt.Errorf("voice activity: %w", err)
		}
		activity, err = vad.Detect(signal)
		if err != nil {
			return nil, fmt.Errorf("voice activity: %w", err)
		}
	}

	runs := activity.NonSpeechSegments(minSamples)
	segments := make([]*audio.Signal, len(runs))
	for i, run := range runs {
		segments[i] = signal.Slice(run.Start, run.End)
	}

	c.logger.Debug("Noise taken from non-speech runs", logging.Fields{
		"runs":             len(runs),
		"non_speech_ratio": activity.NonSpeechRatio(),
	})
	return segments, nil
}

func (c *Composer) waveletPass(signal *audio.Signal, opts wavelet.Options) (*audio.Signal, error) {
	out, err := wavelet.Denoise(signal, opts)
	if err != nil {
		return nil, fmt.Errorf("wavelet denoising: %w", err)
	}

	c.logger.Debug("Wavelet denoising complete", logging.Fields{
		"family": opts.Family,
		"levels": opts.Levels,
		"mode":   string(opts.Mode),
	})
	return out, nil
}
