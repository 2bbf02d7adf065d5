package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
)

const testRate = 16000

func whiteNoise(n int, rms float64, seed uint64) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		u := float64(state>>11)/float64(1<<53)*2 - 1
		out[i] = u * rms * math.Sqrt(3)
	}
	return out
}

// noisyTone returns a 440 Hz tone of amplitude 0.5 over all n samples and
// the same tone with white noise of RMS 0.05 added
func noisyTone(n int) (clean, noisy *audio.Signal) {
	cleanSamples := make([]float64, n)
	for i := range cleanSamples {
		cleanSamples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
	}

	noise := whiteNoise(n, 0.05, 42)
	noisySamples := make([]float64, n)
	for i := range noisySamples {
		noisySamples[i] = cleanSamples[i] + noise[i]
	}

	return &audio.Signal{Samples: cleanSamples, SampleRate: testRate},
		&audio.Signal{Samples: noisySamples, SampleRate: testRate}
}

func snrAgainst(reference, processed []float64) float64 {
	return common.PowerRatioDB(common.MeanSquare(reference), common.MeanSquare(common.Subtract(reference, processed)))
}

func TestStandardEndToEnd(t *testing.T) {
	clean, noisy := noisyTone(testRate)

	// the tone is present in the leading segment and in every VAD frame, so
	// both sources end up estimating from a segment that contains it
	for _, source := range []string{NoiseSourceNonSpeech, NoiseSourceLeading} {
		t.Run(source, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Spectral.NoiseSource = source

			method, err := MethodFromConfig(MethodStandard, cfg)
			if err != nil {
				t.Fatalf("MethodFromConfig failed: %v", err)
			}

			out, err := Process(noisy, method)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			if out.Len() != testRate {
				t.Fatalf("output length %d, want %d", out.Len(), testRate)
			}
			if in, got := common.RMS(noisy.Samples), common.RMS(out.Samples); got >= in {
				t.Errorf("output rms %.4f not below input rms %.4f", got, in)
			}

			inSNR := snrAgainst(clean.Samples, noisy.Samples)
			outSNR := snrAgainst(clean.Samples, out.Samples)
			if outSNR <= inSNR {
				t.Errorf("output snr %.2f dB not above input snr %.2f dB", outSNR, inSNR)
			}
		})
	}
}

// toneThenQuiet is the tone over the first 600 ms followed by quiet noise
func toneThenQuiet() *audio.Signal {
	samples := whiteNoise(testRate, 0.002, 9)
	for i := range testRate * 6 / 10 {
		samples[i] += 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
	}
	return &audio.Signal{Samples: samples, SampleRate: testRate}
}

func TestNonSpeechNoiseSource(t *testing.T) {
	cfg := DefaultConfig()
	c := NewComposer()
	src := noiseSource{vad: cfg.VoiceActivity}
	leadingFrames := (testRate/10-cfg.Spectral.FrameLength)/cfg.Spectral.HopLength + 1

	profile, err := c.noiseProfile(toneThenQuiet(), cfg.Spectral, src)
	if err != nil {
		t.Fatalf("noiseProfile failed: %v", err)
	}
	// the trailing 400 ms of quiet noise, not the leading 100 ms of tone
	if want := (testRate*4/10-cfg.Spectral.FrameLength)/cfg.Spectral.HopLength + 1; profile.Frames != want {
		t.Errorf("profile averaged %d frames, want %d from the trailing run", profile.Frames, want)
	}

	leading := cfg.Spectral
	leading.NoiseSource = NoiseSourceLeading
	profile, err = c.noiseProfile(toneThenQuiet(), leading, src)
	if err != nil {
		t.Fatalf("noiseProfile failed: %v", err)
	}
	if profile.Frames != leadingFrames {
		t.Errorf("leading source averaged %d frames, want %d", profile.Frames, leadingFrames)
	}
}

func TestNonSpeechNoiseSourceFallsBackToLeading(t *testing.T) {
	cfg := DefaultConfig()
	_, noisy := noisyTone(testRate)

	profile, err := NewComposer().noiseProfile(noisy, cfg.Spectral, noiseSource{vad: cfg.VoiceActivity})
	if err != nil {
		t.Fatalf("noiseProfile failed: %v", err)
	}
	if want := (testRate/10-cfg.Spectral.FrameLength)/cfg.Spectral.HopLength + 1; profile.Frames != want {
		t.Errorf("profile averaged %d frames, want the %d leading frames", profile.Frames, want)
	}

	bad := noiseSource{vad: cfg.VoiceActivity}
	bad.vad.HopMs = 0
	if _, err := NewComposer().noiseProfile(noisy, cfg.Spectral, bad); !errors.Is(err, audio.ErrConfigMismatch) {
		t.Errorf("invalid detector: expected ErrConfigMismatch, got %v", err)
	}
}

func TestEveryMethodPreservesLength(t *testing.T) {
	_, noisy := noisyTone(testRate)
	cfg := DefaultConfig()

	for _, name := range MethodNames() {
		t.Run(name, func(t *testing.T) {
			method, err := MethodFromConfig(name, cfg)
			if err != nil {
				t.Fatalf("MethodFromConfig failed: %v", err)
			}
			if method.Name() != name {
				t.Errorf("Name() = %q", method.Name())
			}

			out, err := Process(noisy, method)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if out.Len() != noisy.Len() || out.SampleRate != testRate {
				t.Errorf("got %d samples at %d Hz", out.Len(), out.SampleRate)
			}
			if !common.AllFinite(out.Samples) {
				t.Error("output contains non-finite samples")
			}
		})
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	_, noisy := noisyTone(8000)
	method, _ := MethodFromConfig(MethodEnhancedMultiStage, DefaultConfig())

	first, err := Process(noisy, method)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	second, _ := Process(noisy, method)
	for i := range first.Samples {
		if first.Samples[i] != second.Samples[i] {
			t.Fatalf("sample %d differs between runs", i)
		}
	}
}

func TestEnhancedRespectsPeakCeiling(t *testing.T) {
	_, noisy := noisyTone(testRate)
	cfg := DefaultConfig()
	cfg.AGC.TargetDBFS = -1
	cfg.AGC.MaxGainDB = 24

	method, _ := MethodFromConfig(MethodEnhancedMultiStage, cfg)
	out, err := Process(noisy, method)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if peak := common.Peak(out.Samples); peak > cfg.AGC.PeakCeiling+1e-12 {
		t.Errorf("peak %.4f exceeds ceiling %.4f", peak, cfg.AGC.PeakCeiling)
	}
}

func TestMethodFromConfigUnknown(t *testing.T) {
	if _, err := MethodFromConfig("spectral_gating", DefaultConfig()); !errors.Is(err, audio.ErrUnsupportedMethod) {
		t.Errorf("expected ErrUnsupportedMethod, got %v", err)
	}
	if _, err := Process(&audio.Signal{Samples: []float64{0}, SampleRate: testRate}, nil); !errors.Is(err, audio.ErrUnsupportedMethod) {
		t.Errorf("nil method: expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestSubEngineErrorsPropagate(t *testing.T) {
	_, noisy := noisyTone(2000)
	cfg := DefaultConfig()
	cfg.Wavelet.Levels = 15

	method, _ := MethodFromConfig(MethodMultiStage, cfg)
	if _, err := Process(noisy, method); !errors.Is(err, audio.ErrInvalidLevelCount) {
		t.Errorf("expected ErrInvalidLevelCount, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Spectral.HopLength = cfg.Spectral.FrameLength
	method, _ = MethodFromConfig(MethodStandard, cfg)
	if _, err := Process(noisy, method); !errors.Is(err, audio.ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}
}

func TestExplicitNoiseSignal(t *testing.T) {
	_, noisy := noisyTone(testRate)
	noise := &audio.Signal{Samples: whiteNoise(4000, 0.05, 7), SampleRate: testRate}

	method := WithNoise(Standard{Spectral: DefaultConfig().Spectral}, noise)
	out, err := Process(noisy, method)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if common.RMS(out.Samples) >= common.RMS(noisy.Samples) {
		t.Error("explicit noise profile did not reduce energy")
	}

	mismatched := &audio.Signal{Samples: noise.Samples, SampleRate: 8000}
	if _, err := Process(noisy, WithNoise(method, mismatched)); !errors.Is(err, audio.ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}

	w := Wavelet{Wavelet: DefaultConfig().Wavelet}
	if WithNoise(w, noise) != Method(w) {
		t.Error("WithNoise changed a method without a spectral stage")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative factor", func(c *Config) { c.Spectral.OverSubtraction = -1 }},
		{"floor above one", func(c *Config) { c.Spectral.SpectralFloor = 2 }},
		{"no noise segment", func(c *Config) { c.Spectral.NoiseSegmentMs = 0 }},
		{"unknown noise source", func(c *Config) { c.Spectral.NoiseSource = "trailing" }},
		{"ratio above one", func(c *Config) { c.Protection.SpeechFactorRatio = 1.5 }},
		{"inverted gain bounds", func(c *Config) { c.AGC.MinGainDB, c.AGC.MaxGainDB = 6, -6 }},
		{"smoothing of one", func(c *Config) { c.AGC.Smoothing = 1 }},
		{"zero ceiling", func(c *Config) { c.AGC.PeakCeiling = 0 }},
		{"unknown family", func(c *Config) { c.Wavelet.Family = "sym4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, audio.ErrConfigMismatch) {
				t.Errorf("expected ErrConfigMismatch, got %v", err)
			}
		})
	}
}
