package evaluation

import (
	"encoding/json"
	"errors"

	"github.com/RyanBlaney/sonido-denoise/audio"
)

// Metric names, used as keys in reports and aggregates
const (
	MetricSNR            = "snr"
	MetricInputSNR       = "input_snr"
	MetricSNRImprovement = "snr_improvement"
	MetricRMS            = "rms"
	MetricRMSDB          = "rms_db"
	MetricPeak           = "peak"
	MetricPeakDB         = "peak_db"
	MetricCV             = "cv"
	MetricNonSpeechRatio = "non_speech_ratio"
	MetricMaxSilence     = "max_silence"
	MetricRMSChange      = "rms_change"
	MetricPeakChange     = "peak_change"
	MetricCVChange       = "cv_change"
)

var errUnknownMetric = errors.New("unknown metric")

// MetricNames lists every metric in report order
func MetricNames() []string {
	return []string{
		MetricSNR, MetricInputSNR, MetricSNRImprovement,
		MetricRMS, MetricRMSDB, MetricPeak, MetricPeakDB,
		MetricCV, MetricNonSpeechRatio, MetricMaxSilence,
		MetricRMSChange, MetricPeakChange, MetricCVChange,
	}
}

// Measurement is a metric value or the reason it could not be computed
type Measurement struct {
	Value float64
	Err   error
}

func value(v float64) Measurement {
	return Measurement{Value: v}
}

func failed(err error) Measurement {
	return Measurement{Err: err}
}

// OK reports whether the metric was computed
func (m Measurement) OK() bool {
	return m.Err == nil
}

type measurementJSON struct {
	Value *float64 `json:"value,omitempty"`
	Error string   `json:"error,omitempty"`
	Kind  string   `json:"kind,omitempty"`
}

// MarshalJSON writes {"value": v} or {"error": ..., "kind": ...}
func (m Measurement) MarshalJSON() ([]byte, error) {
	if m.Err != nil {
		return json.Marshal(measurementJSON{Error: m.Err.Error(), Kind: audio.Kind(m.Err)})
	}
	v := m.Value
	return json.Marshal(measurementJSON{Value: &v})
}

// Compliance records which standards a processed file meets. A metric that
// failed to compute counts as not met.
type Compliance struct {
	Compliant bool            `json:"compliant"`
	Checks    map[string]bool `json:"checks"`
}

// Record holds every metric for one (file, method) pair. It is never
// modified after Evaluate returns it.
type Record struct {
	FileID string `json:"file_id"`
	Method string `json:"method"`

	SNR            Measurement `json:"snr"`
	InputSNR       Measurement `json:"input_snr"`
	SNRImprovement Measurement `json:"snr_improvement"`
	RMS            Measurement `json:"rms"`
	RMSDB          Measurement `json:"rms_db"`
	Peak           Measurement `json:"peak"`
	PeakDB         Measurement `json:"peak_db"`
	CV             Measurement `json:"cv"`
	NonSpeechRatio Measurement `json:"non_speech_ratio"`
	MaxSilence     Measurement `json:"max_silence"`

	RMSChange  Measurement `json:"rms_change"`
	PeakChange Measurement `json:"peak_change"`
	CVChange   Measurement `json:"cv_change"`

	Compliance Compliance `json:"compliance"`

	// InputCompliance checks the original input against the same
	// standards, using InputSNR for the SNR check
	InputCompliance Compliance `json:"input_compliance"`
}

// Metric returns the named measurement. Unknown names yield a failed
// measurement.
func (r *Record) Metric(name string) Measurement {
	switch name {
	case MetricSNR:
		return r.SNR
	case MetricInputSNR:
		return r.InputSNR
	case MetricSNRImprovement:
		return r.SNRImprovement
	case MetricRMS:
		return r.RMS
	case MetricRMSDB:
		return r.RMSDB
	case MetricPeak:
		return r.Peak
	case MetricPeakDB:
		return r.PeakDB
	case MetricCV:
		return r.CV
	case MetricNonSpeechRatio:
		return r.NonSpeechRatio
	case MetricMaxSilence:
		return r.MaxSilence
	case MetricRMSChange:
		return r.RMSChange
	case MetricPeakChange:
		return r.PeakChange
	case MetricCVChange:
		return r.CVChange
	default:
		return failed(errUnknownMetric)
	}
}

// Failures returns the metrics that could not be computed
func (r *Record) Failures() map[string]error {
	out := make(map[string]error)
	for _, name := range MetricNames() {
		if m := r.Metric(name); m.Err != nil {
			out[name] = m.Err
		}
	}
	return out
}
