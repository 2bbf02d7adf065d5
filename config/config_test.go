package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/logging"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
method: multi_stage
spectral:
  over_subtraction: 2.5
  noise_segment_ms: 250
wavelet:
  family: db2
  levels: 3
  threshold_mode: hard
experiment:
  methods: [standard, wavelet]
  workers: 2
  unit_timeout: 30s
  non_speech_band:
    min: 0.1
    max: 0.4
logging:
  level: debug
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Method != pipeline.MethodMultiStage {
		t.Errorf("method = %q", cfg.Method)
	}
	if cfg.Spectral.OverSubtraction != 2.5 || cfg.Spectral.FrameLength != Default().Spectral.FrameLength {
		t.Errorf("spectral = %+v", cfg.Spectral)
	}
	if cfg.Wavelet.Family != "db2" || cfg.Wavelet.Levels != 3 || cfg.Wavelet.Mode != "hard" {
		t.Errorf("wavelet = %+v", cfg.Wavelet)
	}
	if cfg.Experiment.UnitTimeout != 30*time.Second || cfg.Experiment.Workers != 2 {
		t.Errorf("experiment = %+v", cfg.Experiment)
	}
	if cfg.EvaluationConfig().NoiseSegmentMs != 250 {
		t.Error("evaluation does not share the noise segment")
	}
	if cfg.LogLevel() != logging.DebugLevel {
		t.Errorf("log level = %v", cfg.LogLevel())
	}

	m, err := cfg.SelectedMethod()
	if err != nil || m.Name() != pipeline.MethodMultiStage {
		t.Errorf("SelectedMethod() = %v, %v", m, err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown method", "method: spectral_gate\n", audio.ErrUnsupportedMethod},
		{"unknown experiment method", "experiment:\n  methods: [standard, nlm]\n", audio.ErrUnsupportedMethod},
		{"hop too large", "spectral:\n  hop_length: 1000\n", audio.ErrConfigMismatch},
		{"unknown noise source", "spectral:\n  noise_source: trailing\n", audio.ErrConfigMismatch},
		{"unknown key", "spectral:\n  frame_size: 512\n", audio.ErrConfigMismatch},
		{"bad log level", "logging:\n  level: loud\n", audio.ErrConfigMismatch},
		{"zero levels", "wavelet:\n  levels: 0\n", audio.ErrInvalidLevelCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadAndMarshal(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "denoise.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Method != Default().Method || cfg.AGC != Default().AGC {
		t.Errorf("round trip changed config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
