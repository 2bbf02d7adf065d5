// Package evaluation computes quality metrics for denoised audio and checks
// them against configurable standards.
package evaluation

import (
	"fmt"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/algorithms/temporal"
	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/logging"
)

// minNoisePower is the smallest noise power an SNR may be computed from
const minNoisePower = 1e-12

// Evaluator computes a Record for a processed signal. Every metric is
// computed independently; one failing never prevents the others.
type Evaluator struct {
	config Config
	vad    *temporal.VoiceActivityDetector
	logger logging.Logger
}

// NewEvaluator validates cfg and builds an evaluator
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vad, err := temporal.NewVoiceActivityDetector(cfg.VoiceActivity)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		config: cfg,
		vad:    vad,
		logger: logging.WithFields(logging.Fields{
			"component": "evaluator",
		}),
	}, nil
}

// Config returns the evaluator configuration
func (e *Evaluator) Config() Config {
	return e.config
}

// Evaluate measures processed against original and, when non-nil, a clean
// reference. Inputs of different lengths are truncated to the shorter one;
// a sample-rate mismatch fails every metric that needs the pair.
func (e *Evaluator) Evaluate(fileID, method string, original, processed, reference *audio.Signal) *Record {
	r := &Record{FileID: fileID, Method: method}

	if err := processed.Validate(); err != nil {
		e.failAll(r, fmt.Errorf("processed: %w", err))
		return r
	}

	originalErr := original.Validate()
	if originalErr == nil && original.SampleRate != processed.SampleRate {
		originalErr = fmt.Errorf("original rate %d, processed rate %d: %w",
			original.SampleRate, processed.SampleRate, audio.ErrConfigMismatch)
	}

	var referenceErr error
	if reference != nil {
		referenceErr = reference.Validate()
		if referenceErr == nil && reference.SampleRate != processed.SampleRate {
			referenceErr = fmt.Errorf("reference rate %d, processed rate %d: %w",
				reference.SampleRate, processed.SampleRate, audio.ErrConfigMismatch)
		}
	}

	e.measureSignal(r, processed)

	// the original input measured the same way, for before/after compliance
	input := &Record{FileID: fileID, Method: method}
	if originalErr != nil {
		e.failSignal(input, originalErr)
	} else {
		e.measureSignal(input, original)
	}

	// SNR of processed and of the original input, same estimator for both
	switch {
	case referenceErr != nil:
		r.SNR = failed(referenceErr)
		r.InputSNR = failed(referenceErr)
	case reference != nil:
		r.SNR = snrWithReference(reference, processed)
		if originalErr != nil {
			r.InputSNR = failed(originalErr)
		} else {
			r.InputSNR = snrWithReference(reference, original)
		}
	default:
		r.SNR = e.snrFromNoiseSegment(processed)
		if originalErr != nil {
			r.InputSNR = failed(originalErr)
		} else {
			r.InputSNR = e.snrFromNoiseSegment(original)
		}
	}
	r.SNRImprovement = difference(r.SNR, r.InputSNR)

	if originalErr != nil {
		r.RMSChange = failed(originalErr)
		r.PeakChange = failed(originalErr)
		r.CVChange = failed(originalErr)
	} else {
		r.RMSChange = relativeChange(r.RMS, input.RMS)
		r.PeakChange = relativeChange(r.Peak, input.Peak)
		r.CVChange = relativeChange(r.CV, input.CV)
	}

	input.SNR = r.InputSNR
	r.Compliance = CheckCompliance(r, e.config.Standards)
	r.InputCompliance = CheckCompliance(input, e.config.Standards)

	if failures := r.Failures(); len(failures) > 0 {
		e.logger.Debug("Some metrics could not be computed", logging.Fields{
			"file_id": fileID,
			"method":  method,
			"failed":  len(failures),
		})
	}

	return r
}

func (e *Evaluator) failAll(r *Record, err error) {
	for _, m := range []*Measurement{
		&r.SNR, &r.InputSNR, &r.SNRImprovement, &r.RMS, &r.RMSDB, &r.Peak, &r.PeakDB,
		&r.CV, &r.NonSpeechRatio, &r.MaxSilence, &r.RMSChange, &r.PeakChange, &r.CVChange,
	} {
		*m = failed(err)
	}
	r.Compliance = CheckCompliance(r, e.config.Standards)
	r.InputCompliance = CheckCompliance(r, e.config.Standards)
}

// measureSignal fills the metrics that need only s
func (e *Evaluator) measureSignal(r *Record, s *audio.Signal) {
	r.RMS = value(common.RMS(s.Samples))
	r.RMSDB = toDBFS(r.RMS, "rms")
	r.Peak = value(common.Peak(s.Samples))
	r.PeakDB = toDBFS(r.Peak, "peak")
	r.CV = e.coefficientOfVariation(s)
	r.NonSpeechRatio, r.MaxSilence = e.silence(s)
}

func (e *Evaluator) failSignal(r *Record, err error) {
	for _, m := range []*Measurement{&r.RMS, &r.RMSDB, &r.Peak, &r.PeakDB, &r.CV, &r.NonSpeechRatio, &r.MaxSilence} {
		*m = failed(err)
	}
}

// snrWithReference is 10·log10(P(ref) / P(ref − processed))
func snrWithReference(reference, processed *audio.Signal) Measurement {
	n := min(reference.Len(), processed.Len())
	if n == 0 {
		return failed(fmt.Errorf("no overlapping samples: %w", audio.ErrDegenerateSignal))
	}
	ref := reference.Samples[:n]
	return snr(common.MeanSquare(ref), common.MeanSquare(common.Subtract(ref, processed.Samples[:n])))
}

// snrFromNoiseSegment takes noise power from the leading noise segment and
// signal power from everything after it
func (e *Evaluator) snrFromNoiseSegment(s *audio.Signal) Measurement {
	split := s.MsToSamples(e.config.NoiseSegmentMs)
	if split <= 0 || split >= s.Len() {
		return failed(fmt.Errorf("%d samples cannot hold a %.0f ms noise segment and signal: %w",
			s.Len(), e.config.NoiseSegmentMs, audio.ErrDegenerateSignal))
	}
	return snr(common.MeanSquare(s.Samples[split:]), common.MeanSquare(s.Samples[:split]))
}

func snr(signalPower, noisePower float64) Measurement {
	if noisePower <= minNoisePower {
		return failed(fmt.Errorf("noise power %.3g below %.0g: %w", noisePower, minNoisePower, audio.ErrDegenerateSignal))
	}
	if signalPower <= 0 {
		return failed(fmt.Errorf("signal power is zero: %w", audio.ErrDegenerateSignal))
	}
	return value(common.PowerRatioDB(signalPower, noisePower))
}

// coefficientOfVariation is stddev/mean of the frame RMS envelope
func (e *Evaluator) coefficientOfVariation(s *audio.Signal) Measurement {
	frame := max(1, s.MsToSamples(e.config.EnvelopeFrameMs))
	hop := max(1, s.MsToSamples(e.config.EnvelopeHopMs))
	envelope := temporal.NewEnergy(frame, hop).ComputeShortTimeEnergy(s.Samples)

	mean := common.Mean(envelope)
	if mean <= 0 {
		return failed(fmt.Errorf("energy envelope mean is zero: %w", audio.ErrDegenerateSignal))
	}
	return value(common.PopulationStdDev(envelope) / mean)
}

func (e *Evaluator) silence(s *audio.Signal) (Measurement, Measurement) {
	activity, err := e.vad.Detect(s)
	if err != nil {
		return failed(err), failed(err)
	}
	return value(activity.NonSpeechRatio()), value(activity.LongestNonSpeechSeconds())
}

func toDBFS(m Measurement, name string) Measurement {
	if m.Err != nil {
		return m
	}
	if m.Value <= 0 {
		return failed(fmt.Errorf("%s is zero: %w", name, audio.ErrDegenerateSignal))
	}
	return value(common.AmplitudeToDB(m.Value))
}

func difference(a, b Measurement) Measurement {
	if a.Err != nil {
		return a
	}
	if b.Err != nil {
		return b
	}
	return value(a.Value - b.Value)
}

// relativeChange is (processed − original) / original
func relativeChange(processed, original Measurement) Measurement {
	if processed.Err != nil {
		return processed
	}
	if original.Err != nil {
		return failed(fmt.Errorf("original: %w", original.Err))
	}
	if original.Value == 0 {
		return failed(fmt.Errorf("original value is zero: %w", audio.ErrDegenerateSignal))
	}
	return value((processed.Value - original.Value) / original.Value)
}
