// Package experiment runs denoising methods over a corpus, evaluates every
// (file, method) unit and ranks the methods.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/logging"
	"github.com/RyanBlaney/sonido-denoise/pipeline"
)

// Item is one corpus file: the noisy input and, optionally, a clean
// reference and a noise-only recording
type Item struct {
	ID        string
	Input     *audio.Signal
	Reference *audio.Signal
	Noise     *audio.Signal
}

// ProcessFunc runs a method over a signal
type ProcessFunc func(signal *audio.Signal, method pipeline.Method) (*audio.Signal, error)

// OutputFunc receives every successfully processed signal. It is called
// from worker goroutines; an error fails the unit.
type OutputFunc func(fileID, method string, processed *audio.Signal) error

// Option configures a Comparator
type Option func(*Comparator)

// WithProcessFunc replaces the pipeline composer
func WithProcessFunc(fn ProcessFunc) Option {
	return func(c *Comparator) { c.process = fn }
}

// WithOutput registers a handler for processed signals
func WithOutput(fn OutputFunc) Option {
	return func(c *Comparator) { c.output = fn }
}

// Comparator evaluates methods over a corpus in parallel
type Comparator struct {
	config    Config
	evaluator *evaluation.Evaluator
	process   ProcessFunc
	output    OutputFunc
	logger    logging.Logger
}

// NewComparator creates a comparator that processes through the pipeline
// composer and scores with evaluator
func NewComparator(cfg Config, evaluator *evaluation.Evaluator, opts ...Option) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is nil: %w", audio.ErrConfigMismatch)
	}

	c := &Comparator{
		config:    cfg,
		evaluator: evaluator,
		process:   pipeline.NewComposer().Process,
		logger: logging.WithFields(logging.Fields{
			"component": "experiment_comparator",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type unit struct {
	item   int
	method int
}

type unitResult struct {
	index  int
	record *evaluation.Record
	err    error
}

// Compare runs every method over every item. Failed units are recorded
// and excluded from aggregates; if no unit succeeds the error wraps
// audio.ErrNoSuccessfulUnits. Cancelling ctx stops dispatching new units.
func (c *Comparator) Compare(ctx context.Context, corpus []Item, methods []pipeline.Method) (*Result, error) {
	if len(corpus) == 0 || len(methods) == 0 {
		return nil, fmt.Errorf("%d files and %d methods: %w", len(corpus), len(methods), audio.ErrNoSuccessfulUnits)
	}

	units := make([]unit, 0, len(corpus)*len(methods))
	for i := range corpus {
		for m := range methods {
			units = append(units, unit{item: i, method: m})
		}
	}

	c.logger.Info("Starting comparison", logging.Fields{
		"files":   len(corpus),
		"methods": len(methods),
		"units":   len(units),
	})
	start := time.Now()

	outcomes := make([]unitResult, len(units))
	jobs := make(chan int)
	results := make(chan unitResult)

	var wg sync.WaitGroup
	for range c.workerCount(len(units)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				u := units[idx]
				record, err := c.runUnit(ctx, corpus[u.item], methods[u.method])
				results <- unitResult{index: idx, record: record, err: err}
			}
		}()
	}

	// single collector owns outcomes
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			outcomes[r.index] = r
		}
	}()

dispatch:
	for idx := range units {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	<-collected

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("comparison cancelled: %w", err)
	}

	result := c.assemble(corpus, methods, units, outcomes)

	c.logger.Info("Comparison complete", logging.Fields{
		"succeeded":      result.Succeeded,
		"failed":         result.Units - result.Succeeded,
		"recommendation": result.Recommendation,
		"duration_ms":    time.Since(start).Milliseconds(),
	})

	if result.Succeeded == 0 {
		return result, fmt.Errorf("all %d units failed: %w", result.Units, audio.ErrNoSuccessfulUnits)
	}
	return result, nil
}

// assemble builds the frozen result in corpus order
func (c *Comparator) assemble(corpus []Item, methods []pipeline.Method, units []unit, outcomes []unitResult) *Result {
	summaries := make([]*MethodSummary, len(methods))
	for m, method := range methods {
		summaries[m] = &MethodSummary{
			Method:   method.Name(),
			Records:  []*evaluation.Record{},
			Failures: []Failure{},
		}
	}

	result := &Result{Units: len(units)}
	for idx, u := range units {
		s := summaries[u.method]
		out := outcomes[idx]
		if out.err != nil {
			s.Failures = append(s.Failures, Failure{FileID: corpus[u.item].ID, Method: s.Method, Err: out.err})
			c.logger.Warn("Unit failed", logging.Fields{
				"file_id": corpus[u.item].ID,
				"method":  s.Method,
				"kind":    audio.Kind(out.err),
				"error":   out.err.Error(),
			})
			continue
		}
		s.Records = append(s.Records, out.record)
		result.Succeeded++
	}

	for _, s := range summaries {
		summarize(s, c.config.NonSpeechBand)
	}

	result.Methods = summaries
	result.Ranking = rank(summaries)
	if len(result.Ranking) > 0 {
		result.Recommendation = result.Ranking[0]
	}
	return result
}

// Unit states. A unit commits once it starts writing output; from then on
// it runs to completion even past its timeout, so no output is left behind
// for a unit recorded as timed out.
const (
	unitRunning int32 = iota
	unitCommitted
	unitAbandoned
)

var errUnitAbandoned = errors.New("unit abandoned")

// runUnit processes and evaluates one (file, method) pair, bounded by the
// configured unit timeout
func (c *Comparator) runUnit(ctx context.Context, item Item, method pipeline.Method) (*evaluation.Record, error) {
	var state atomic.Int32
	if c.config.UnitTimeout <= 0 {
		return c.evaluateUnit(item, method, &state)
	}

	type outcome struct {
		record *evaluation.Record
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		record, err := c.evaluateUnit(item, method, &state)
		done <- outcome{record, err}
	}()

	timer := time.NewTimer(c.config.UnitTimeout)
	defer timer.Stop()

	// the engines are synchronous; an abandoned unit finishes in the
	// background and its result is dropped
	var stopErr error
	select {
	case o := <-done:
		return o.record, o.err
	case <-timer.C:
		stopErr = fmt.Errorf("exceeded %v: %w", c.config.UnitTimeout, audio.ErrUnitTimeout)
	case <-ctx.Done():
		stopErr = ctx.Err()
	}

	if state.CompareAndSwap(unitRunning, unitAbandoned) {
		return nil, stopErr
	}

	// output already started
	o := <-done
	return o.record, o.err
}

func (c *Comparator) evaluateUnit(item Item, method pipeline.Method, state *atomic.Int32) (*evaluation.Record, error) {
	if item.Noise != nil {
		method = pipeline.WithNoise(method, item.Noise)
	}

	processed, err := c.process(item.Input, method)
	if err != nil {
		return nil, err
	}

	if c.output != nil {
		if !state.CompareAndSwap(unitRunning, unitCommitted) {
			return nil, errUnitAbandoned
		}
		if err := c.output(item.ID, method.Name(), processed); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}

	return c.evaluator.Evaluate(item.ID, method.Name(), item.Input, processed, item.Reference), nil
}

// workerCount sizes the pool from the config or the CPU count
func (c *Comparator) workerCount(numUnits int) int {
	if c.config.Workers > 0 {
		return min(c.config.Workers, numUnits)
	}
	return max(1, min(runtime.NumCPU(), numUnits))
}
