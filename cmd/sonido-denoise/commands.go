package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/config"
	"github.com/RyanBlaney/sonido-denoise/corpus"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/experiment"
	"github.com/RyanBlaney/sonido-denoise/logging"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
	"github.com/RyanBlaney/sonido-denoise/report"
	"github.com/RyanBlaney/sonido-denoise/transcode"
)

// CorpusFlags locate the audio to process
type CorpusFlags struct {
	Input      string        `arg:"" type:"existingdir" help:"Directory of noisy .wav/.mp3 files"`
	Reference  string        `short:"r" type:"path" help:"Directory of clean references paired by file name"`
	Noise      string        `short:"n" type:"path" help:"Noise-only recording used as the profile for every file"`
	Output     string        `short:"o" default:"output" help:"Directory for processed audio and reports"`
	SampleRate int           `name:"sample-rate" help:"Resample inputs to this rate (0 keeps the native rate)"`
	Workers    int           `short:"w" help:"Parallel units (0 uses the config value)"`
	Timeout    time.Duration `help:"Per-unit time limit (0 uses the config value)"`
}

// ProcessCmd denoises a directory with a single method
type ProcessCmd struct {
	CorpusFlags

	Method   string `short:"m" help:"Method: standard, wavelet, multi_stage or enhanced_multi_stage (default from config)"`
	BitDepth int    `name:"bit-depth" default:"16" help:"Output WAV bit depth"`
}

func (p *ProcessCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if p.Method != "" {
		cfg.Method = p.Method
	}
	p.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(globals, cfg)

	method, err := cfg.SelectedMethod()
	if err != nil {
		return err
	}

	ctx = logging.ContextWithFields(ctx, logging.Fields{"command": "process"})
	items, err := p.load(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	writeWAV := func(fileID, _ string, processed *audio.Signal) error {
		path := filepath.Join(p.Output, "processed_"+stem(fileID)+".wav")
		return transcode.WriteWAVFile(path, processed, p.BitDepth)
	}

	result, err := runComparison(ctx, cfg, items, []pipeline.Method{method}, experiment.WithOutput(writeWAV))
	if result == nil {
		return err
	}

	summary := result.Summary(method.Name())
	base := filepath.Join(p.Output, "noise_reduction_"+method.Name()+"_results")
	if werr := report.WriteRecordsCSVFile(base+".csv", summary.Records); werr != nil {
		return werr
	}
	if werr := report.WriteJSONFile(base+".json", summary); werr != nil {
		return werr
	}

	fmt.Printf("%s %d/%d files processed with %s\n",
		report.KeyStyle.Render("Done:"), result.Succeeded, result.Units, method.Name())
	fmt.Printf("%s %s\n", report.KeyStyle.Render("Results:"), base+".csv")
	return err
}

// CompareCmd runs every configured method and prints the ranking
type CompareCmd struct {
	CorpusFlags

	Methods   []string `short:"m" help:"Methods to compare (default from config)"`
	SaveAudio bool     `name:"save-audio" help:"Write processed audio for every method"`
}

func (c *CompareCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if len(c.Methods) > 0 {
		cfg.Experiment.Methods = c.Methods
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(globals, cfg)

	methods, err := cfg.Experiment.BuildMethods(cfg.Pipeline())
	if err != nil {
		return err
	}

	ctx = logging.ContextWithFields(ctx, logging.Fields{"command": "compare"})
	items, err := c.load(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var opts []experiment.Option
	if c.SaveAudio {
		for _, m := range methods {
			if err := os.MkdirAll(filepath.Join(c.Output, m.Name()), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		opts = append(opts, experiment.WithOutput(func(fileID, method string, processed *audio.Signal) error {
			path := filepath.Join(c.Output, method, "processed_"+stem(fileID)+".wav")
			return transcode.WriteWAVFile(path, processed, 16)
		}))
	}

	result, err := runComparison(ctx, cfg, items, methods, opts...)
	if result == nil {
		return err
	}

	base := filepath.Join(c.Output, "method_comparison_results")
	if werr := report.WriteComparisonCSVFile(base+".csv", result); werr != nil {
		return werr
	}
	if werr := report.WriteJSONFile(base+".json", result); werr != nil {
		return werr
	}

	fmt.Print(report.Summary(result))
	fmt.Printf("%s %s\n", report.KeyStyle.Render("Report:"), base+".json")
	return err
}

// ConfigCmd prints the effective configuration
type ConfigCmd struct{}

func (c *ConfigCmd) Run(globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func (f *CorpusFlags) applyOverrides(cfg *config.Config) {
	if f.Workers > 0 {
		cfg.Experiment.Workers = f.Workers
	}
	if f.Timeout > 0 {
		cfg.Experiment.UnitTimeout = f.Timeout
	}
}

// load discovers and decodes the corpus and the optional noise recording
func (f *CorpusFlags) load(ctx context.Context) ([]experiment.Item, error) {
	decoderConfig := transcode.DefaultDecoderConfig()
	decoderConfig.TargetSampleRate = f.SampleRate
	decoder := transcode.NewDecoder(decoderConfig)

	entries, err := corpus.Discover(f.Input, f.Reference)
	if err != nil {
		return nil, err
	}

	var noise *audio.Signal
	if f.Noise != "" {
		noise, err = decoder.DecodeFile(ctx, f.Noise)
		if err != nil {
			return nil, fmt.Errorf("noise recording: %w", err)
		}
	}

	return corpus.Load(ctx, decoder, entries, noise)
}

func runComparison(ctx context.Context, cfg *config.Config, items []experiment.Item, methods []pipeline.Method, opts ...experiment.Option) (*experiment.Result, error) {
	evaluator, err := evaluation.NewEvaluator(cfg.EvaluationConfig())
	if err != nil {
		return nil, err
	}

	comparator, err := experiment.NewComparator(cfg.Experiment, evaluator, opts...)
	if err != nil {
		return nil, err
	}

	return comparator.Compare(ctx, items, methods)
}

func loadConfig(globals *Globals) (*config.Config, error) {
	cfg := config.Default()
	if globals.Config != "" {
		loaded, err := config.Load(globals.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// --log-level overrides logging.level and is held to the same values
	if globals.LogLevel != "" {
		if _, err := logging.ParseLevel(globals.LogLevel); err != nil {
			return nil, fmt.Errorf("--log-level: %v: %w", err, audio.ErrConfigMismatch)
		}
		cfg.Logging.Level = globals.LogLevel
	}
	return cfg, nil
}

// setupLogging installs the global logger; logs go to stderr so reports
// on stdout stay clean
func setupLogging(globals *Globals, cfg *config.Config) {
	logging.SetGlobalLogger(logging.NewLogger(os.Stderr, os.Stderr, cfg.LogLevel(), globals.Color))
}

func stem(fileID string) string {
	return strings.TrimSuffix(fileID, filepath.Ext(fileID))
}
