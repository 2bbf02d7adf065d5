package experiment

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
)

// Band is an inclusive [Min, Max] range
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies in the band
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Config controls an experiment run
type Config struct {
	// Methods to compare, by name. Empty means every method.
	Methods []string `json:"methods" yaml:"methods"`
	// Workers bounds parallel units; 0 sizes the pool from the CPU count
	Workers int `json:"workers" yaml:"workers"`
	// UnitTimeout bounds one (file, method) unit; 0 disables the bound
	UnitTimeout time.Duration `json:"unit_timeout" yaml:"unit_timeout"`
	// NonSpeechBand is the target range for the non-speech ratio tie-break
	NonSpeechBand Band `json:"non_speech_band" yaml:"non_speech_band"`
}

// DefaultConfig compares every method with an automatically sized pool
func DefaultConfig() Config {
	return Config{
		Methods:       pipeline.MethodNames(),
		Workers:       0,
		UnitTimeout:   0,
		NonSpeechBand: Band{Min: 0, Max: 0.3},
	}
}

// Validate checks the pool size, timeout and band
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d: %w", c.Workers, audio.ErrConfigMismatch)
	}
	if c.UnitTimeout < 0 {
		return fmt.Errorf("unit_timeout must be >= 0, got %v: %w", c.UnitTimeout, audio.ErrConfigMismatch)
	}
	if c.NonSpeechBand.Min > c.NonSpeechBand.Max || c.NonSpeechBand.Min < 0 || c.NonSpeechBand.Max > 1 {
		return fmt.Errorf("non_speech_band [%v, %v] must be an ordered range within [0, 1]: %w",
			c.NonSpeechBand.Min, c.NonSpeechBand.Max, audio.ErrConfigMismatch)
	}
	return nil
}

// BuildMethods resolves the configured method names against pcfg
func (c Config) BuildMethods(pcfg pipeline.Config) ([]pipeline.Method, error) {
	names := c.Methods
	if len(names) == 0 {
		names = pipeline.MethodNames()
	}

	methods := make([]pipeline.Method, 0, len(names))
	for _, name := range names {
		m, err := pipeline.MethodFromConfig(name, pcfg)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}
