// Package config loads and validates the YAML configuration shared by the
// CLI commands.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/experiment"
	"github.com/RyanBlaney/sonido-denoise/logging"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
)

// EvaluationConfig holds the evaluation settings not shared with the pipeline
type EvaluationConfig struct {
	EnvelopeFrameMs float64              `json:"envelope_frame_ms" yaml:"envelope_frame_ms"`
	EnvelopeHopMs   float64              `json:"envelope_hop_ms" yaml:"envelope_hop_ms"`
	Standards       evaluation.Standards `json:"standards" yaml:"standards"`
}

// LoggingConfig selects the log level
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Config is the root of the configuration file
type Config struct {
	Method        string                    `json:"method" yaml:"method"`
	Spectral      pipeline.SpectralConfig   `json:"spectral" yaml:"spectral"`
	Wavelet       wavelet.Options           `json:"wavelet" yaml:"wavelet"`
	VoiceActivity temporal.VADConfig        `json:"voice_activity" yaml:"voice_activity"`
	Protection    pipeline.ProtectionConfig `json:"protection" yaml:"protection"`
	AGC           pipeline.AGCConfig        `json:"agc" yaml:"agc"`
	Evaluation    EvaluationConfig          `json:"evaluation" yaml:"evaluation"`
	Experiment    experiment.Config         `json:"experiment" yaml:"experiment"`
	Logging       LoggingConfig             `json:"logging" yaml:"logging"`
}

// Default returns the built-in configuration
func Default() *Config {
	p := pipeline.DefaultConfig()
	e := evaluation.DefaultConfig()

	return &Config{
		Method:        pipeline.MethodEnhancedMultiStage,
		Spectral:      p.Spectral,
		Wavelet:       p.Wavelet,
		VoiceActivity: p.VoiceActivity,
		Protection:    p.Protection,
		AGC:           p.AGC,
		Evaluation: EvaluationConfig{
			EnvelopeFrameMs: e.EnvelopeFrameMs,
			EnvelopeHopMs:   e.EnvelopeHopMs,
			Standards:       e.Standards,
		},
		Experiment: experiment.DefaultConfig(),
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v: %w", err, audio.ErrConfigMismatch)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks every section and the selected method name
func (c *Config) Validate() error {
	if _, err := pipeline.MethodFromConfig(c.Method, c.Pipeline()); err != nil {
		return err
	}
	if err := c.Pipeline().Validate(); err != nil {
		return err
	}
	if err := c.EvaluationConfig().Validate(); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	if err := c.Experiment.Validate(); err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	if _, err := c.Experiment.BuildMethods(c.Pipeline()); err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %v: %w", err, audio.ErrConfigMismatch)
	}
	return nil
}

// Pipeline returns the method parameters
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Spectral:      c.Spectral,
		Wavelet:       c.Wavelet,
		VoiceActivity: c.VoiceActivity,
		Protection:    c.Protection,
		AGC:           c.AGC,
	}
}

// EvaluationConfig returns the evaluator settings. The noise segment and
// voice-activity settings are shared with the pipeline.
func (c *Config) EvaluationConfig() evaluation.Config {
	return evaluation.Config{
		NoiseSegmentMs:  c.Spectral.NoiseSegmentMs,
		EnvelopeFrameMs: c.Evaluation.EnvelopeFrameMs,
		EnvelopeHopMs:   c.Evaluation.EnvelopeHopMs,
		VoiceActivity:   c.VoiceActivity,
		Standards:       c.Evaluation.Standards,
	}
}

// SelectedMethod builds the method named by Method
func (c *Config) SelectedMethod() (pipeline.Method, error) {
	return pipeline.MethodFromConfig(c.Method, c.Pipeline())
}

// LogLevel returns the parsed logging level
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}
