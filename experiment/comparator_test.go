package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
)

const testRate = 16000

func tone(n int, freq float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

func noiseLike(n int, seed uint64) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = float64(state>>11)/float64(1<<53)*2 - 1
	}
	return out
}

// atSNR returns clean plus deterministic noise at exactly snrDB
func atSNR(clean []float64, snrDB float64, seed uint64) []float64 {
	n := noiseLike(len(clean), seed)
	scale := math.Sqrt(common.MeanSquare(clean) / common.MeanSquare(n) / math.Pow(10, snrDB/10))
	out := make([]float64, len(clean))
	for i := range out {
		out[i] = clean[i] + scale*n[i]
	}
	return out
}

const inputSNR = 5.0

// testCorpus builds files whose inputs sit at inputSNR against their references
func testCorpus(ids ...string) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		clean := tone(8000, 200+100*float64(i))
		items[i] = Item{
			ID:        id,
			Input:     &audio.Signal{Samples: atSNR(clean, inputSNR, uint64(i+1)), SampleRate: testRate},
			Reference: &audio.Signal{Samples: clean, SampleRate: testRate},
		}
	}
	return items
}

// improvingProcess cleans each input to inputSNR + gains[method] dB
func improvingProcess(corpus []Item, gains map[string]float64) ProcessFunc {
	refs := make(map[*audio.Signal]*audio.Signal)
	for _, item := range corpus {
		refs[item.Input] = item.Reference
	}
	return func(s *audio.Signal, m pipeline.Method) (*audio.Signal, error) {
		ref := refs[s]
		return s.WithSamples(atSNR(ref.Samples, inputSNR+gains[m.Name()], 99)), nil
	}
}

func mustEvaluator(t *testing.T) *evaluation.Evaluator {
	t.Helper()
	e, err := evaluation.NewEvaluator(evaluation.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	return e
}

func twoMethods() []pipeline.Method {
	cfg := pipeline.DefaultConfig()
	standard, _ := pipeline.MethodFromConfig(pipeline.MethodStandard, cfg)
	wavelet, _ := pipeline.MethodFromConfig(pipeline.MethodWavelet, cfg)
	return []pipeline.Method{standard, wavelet}
}

func TestRankingPrefersLargerImprovement(t *testing.T) {
	gains := map[string]float64{pipeline.MethodStandard: 10, pipeline.MethodWavelet: 12}

	for _, order := range [][]string{{"a", "b", "c"}, {"c", "b", "a"}} {
		corpus := testCorpus(order...)
		comparator, err := NewComparator(DefaultConfig(), mustEvaluator(t), WithProcessFunc(improvingProcess(corpus, gains)))
		if err != nil {
			t.Fatalf("NewComparator failed: %v", err)
		}

		result, err := comparator.Compare(context.Background(), corpus, twoMethods())
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}

		if result.Recommendation != pipeline.MethodWavelet {
			t.Errorf("order %v: recommendation %q, ranking %v", order, result.Recommendation, result.Ranking)
		}

		stats, ok := result.Summary(pipeline.MethodWavelet).Aggregate(evaluation.MetricSNRImprovement)
		if !ok || math.Abs(stats.Mean-12) > 0.5 || stats.Count != 3 {
			t.Errorf("wavelet improvement stats %+v", stats)
		}
		if result.Summary(pipeline.MethodWavelet).Rank != 1 || result.Summary(pipeline.MethodStandard).Rank != 2 {
			t.Error("ranks not assigned")
		}
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	corpus := testCorpus("a", "b", "c")
	gains := map[string]float64{pipeline.MethodStandard: 10, pipeline.MethodWavelet: 12}
	improve := improvingProcess(corpus, gains)

	process := func(s *audio.Signal, m pipeline.Method) (*audio.Signal, error) {
		if s == corpus[1].Input && m.Name() == pipeline.MethodStandard {
			return nil, fmt.Errorf("noise estimate: %w", audio.ErrDegenerateSignal)
		}
		return improve(s, m)
	}

	comparator, _ := NewComparator(DefaultConfig(), mustEvaluator(t), WithProcessFunc(process))
	result, err := comparator.Compare(context.Background(), corpus, twoMethods())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	standard := result.Summary(pipeline.MethodStandard)
	if len(standard.Records) != 2 || len(standard.Failures) != 1 {
		t.Fatalf("standard: %d records, %d failures", len(standard.Records), len(standard.Failures))
	}
	if f := standard.Failures[0]; f.FileID != "b" || !errors.Is(f.Err, audio.ErrDegenerateSignal) {
		t.Errorf("unexpected failure %+v", f)
	}
	if got := len(result.Summary(pipeline.MethodWavelet).Records); got != 3 {
		t.Errorf("wavelet: %d records, want 3", got)
	}
	if result.Succeeded != 5 || result.Units != 6 {
		t.Errorf("succeeded %d of %d", result.Succeeded, result.Units)
	}
	if stats, _ := standard.Aggregate(evaluation.MetricSNR); stats.Count != 2 {
		t.Errorf("failed unit leaked into aggregates: %+v", stats)
	}
}

func TestRecordsFollowCorpusOrder(t *testing.T) {
	corpus := testCorpus("f1", "f2", "f3", "f4", "f5", "f6")
	gains := map[string]float64{pipeline.MethodStandard: 3, pipeline.MethodWavelet: 4}

	cfg := DefaultConfig()
	cfg.Workers = 4
	comparator, _ := NewComparator(cfg, mustEvaluator(t), WithProcessFunc(improvingProcess(corpus, gains)))
	result, err := comparator.Compare(context.Background(), corpus, twoMethods())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	for _, s := range result.Methods {
		for i, r := range s.Records {
			if r.FileID != corpus[i].ID {
				t.Errorf("%s: record %d is %s, want %s", s.Method, i, r.FileID, corpus[i].ID)
			}
		}
	}
}

func TestAllUnitsFailed(t *testing.T) {
	process := func(*audio.Signal, pipeline.Method) (*audio.Signal, error) {
		return nil, fmt.Errorf("levels: %w", audio.ErrInvalidLevelCount)
	}
	comparator, _ := NewComparator(DefaultConfig(), mustEvaluator(t), WithProcessFunc(process))

	result, err := comparator.Compare(context.Background(), testCorpus("a", "b"), twoMethods())
	if !errors.Is(err, audio.ErrNoSuccessfulUnits) {
		t.Fatalf("expected ErrNoSuccessfulUnits, got %v", err)
	}
	if result == nil || len(result.Failures()) != 4 {
		t.Errorf("expected 4 recorded failures, got %+v", result)
	}
}

func TestUnitTimeout(t *testing.T) {
	process := func(s *audio.Signal, m pipeline.Method) (*audio.Signal, error) {
		time.Sleep(200 * time.Millisecond)
		return s.Clone(), nil
	}

	cfg := DefaultConfig()
	cfg.UnitTimeout = 10 * time.Millisecond
	comparator, _ := NewComparator(cfg, mustEvaluator(t), WithProcessFunc(process))

	result, err := comparator.Compare(context.Background(), testCorpus("a"), twoMethods()[:1])
	if !errors.Is(err, audio.ErrNoSuccessfulUnits) {
		t.Fatalf("expected ErrNoSuccessfulUnits, got %v", err)
	}
	if f := result.Failures(); len(f) != 1 || !errors.Is(f[0].Err, audio.ErrUnitTimeout) {
		t.Errorf("expected a timeout failure, got %+v", f)
	}
}

func TestTimedOutUnitWritesNoOutput(t *testing.T) {
	release := make(chan struct{})
	process := func(s *audio.Signal, m pipeline.Method) (*audio.Signal, error) {
		<-release
		return s.Clone(), nil
	}

	var calls atomic.Int32
	output := func(fileID, method string, processed *audio.Signal) error {
		calls.Add(1)
		return nil
	}

	cfg := DefaultConfig()
	cfg.UnitTimeout = 10 * time.Millisecond
	comparator, _ := NewComparator(cfg, mustEvaluator(t), WithProcessFunc(process), WithOutput(output))

	result, err := comparator.Compare(context.Background(), testCorpus("a"), twoMethods()[:1])
	if !errors.Is(err, audio.ErrNoSuccessfulUnits) {
		t.Fatalf("expected ErrNoSuccessfulUnits, got %v", err)
	}
	if f := result.Failures(); len(f) != 1 || !errors.Is(f[0].Err, audio.ErrUnitTimeout) {
		t.Errorf("expected a timeout failure, got %+v", f)
	}

	// let the abandoned unit finish processing
	close(release)
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("output called %d times for a timed-out unit", calls.Load())
	}
}

func TestSlowOutputCompletesPastTimeout(t *testing.T) {
	corpus := testCorpus("a")
	gains := map[string]float64{pipeline.MethodStandard: 3}

	output := func(fileID, method string, processed *audio.Signal) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}

	cfg := DefaultConfig()
	cfg.UnitTimeout = 50 * time.Millisecond
	comparator, _ := NewComparator(cfg, mustEvaluator(t),
		WithProcessFunc(improvingProcess(corpus, gains)), WithOutput(output))

	result, err := comparator.Compare(context.Background(), corpus, twoMethods()[:1])
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("unit whose output was written should succeed, got %+v", result.Failures())
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	comparator, _ := NewComparator(DefaultConfig(), mustEvaluator(t))
	_, err := comparator.Compare(ctx, testCorpus("a", "b"), twoMethods())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOutputHandler(t *testing.T) {
	corpus := testCorpus("a", "b")
	gains := map[string]float64{pipeline.MethodStandard: 3, pipeline.MethodWavelet: 4}

	var calls atomic.Int32
	output := func(fileID, method string, processed *audio.Signal) error {
		calls.Add(1)
		if fileID == "b" && method == pipeline.MethodWavelet {
			return errors.New("disk full")
		}
		return nil
	}

	comparator, _ := NewComparator(DefaultConfig(), mustEvaluator(t),
		WithProcessFunc(improvingProcess(corpus, gains)), WithOutput(output))
	result, err := comparator.Compare(context.Background(), corpus, twoMethods())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("output called %d times, want 4", calls.Load())
	}
	if len(result.Summary(pipeline.MethodWavelet).Failures) != 1 {
		t.Error("output error did not fail the unit")
	}
}

func TestCompareWithPipeline(t *testing.T) {
	corpus := testCorpus("a", "b")
	for i := range corpus {
		// leading 100 ms of noise only
		clean := corpus[i].Reference.Samples
		for j := range testRate / 10 {
			clean[j] = 0
		}
		corpus[i].Input = &audio.Signal{Samples: atSNR(clean, 10, uint64(i+5)), SampleRate: testRate}
	}

	methods, err := DefaultConfig().BuildMethods(pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildMethods failed: %v", err)
	}

	comparator, _ := NewComparator(DefaultConfig(), mustEvaluator(t))
	result, err := comparator.Compare(context.Background(), corpus, methods)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result.Ranking) != 4 || result.Recommendation == "" {
		t.Errorf("ranking %v, recommendation %q", result.Ranking, result.Recommendation)
	}
	if result.Succeeded != 8 {
		t.Errorf("succeeded %d of 8: %+v", result.Succeeded, result.Failures())
	}
}

func TestBuildMethodsUnknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Methods = []string{"standard", "nlm"}
	if _, err := cfg.BuildMethods(pipeline.DefaultConfig()); !errors.Is(err, audio.ErrUnsupportedMethod) {
		t.Errorf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NonSpeechBand = Band{Min: 0.5, Max: 0.2}
	if _, err := NewComparator(cfg, mustEvaluator(t)); !errors.Is(err, audio.ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}
}
