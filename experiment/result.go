package experiment

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-denoise/algorithms/common"
	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
)

// tieTolerance is the SNR-improvement difference (dB) below which two
// methods are considered tied
const tieTolerance = 1e-9

// Failure records a (file, method) unit that produced no metrics
type Failure struct {
	FileID string
	Method string
	Err    error
}

// MarshalJSON includes the error kind alongside the message
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FileID string `json:"file_id"`
		Method string `json:"method"`
		Error  string `json:"error"`
		Kind   string `json:"kind"`
	}{f.FileID, f.Method, f.Err.Error(), audio.Kind(f.Err)})
}

// Stats summarises one metric over the successful units of a method
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

func newStats(values []float64) Stats {
	return Stats{
		Mean:   common.Mean(values),
		StdDev: common.PopulationStdDev(values),
		Min:    slices.Min(values),
		Max:    slices.Max(values),
		Count:  len(values),
	}
}

// MethodSummary is everything the comparison learned about one method
type MethodSummary struct {
	Method     string                `json:"method"`
	Rank       int                   `json:"rank"`
	Records    []*evaluation.Record  `json:"records"`
	Failures   []Failure             `json:"failures"`
	Aggregates map[string]Stats      `json:"aggregates"`
	// ComplianceRate is the fraction of successful files meeting every standard
	ComplianceRate float64 `json:"compliance_rate"`
	// NonSpeechCompliance is the fraction of successful files whose
	// non-speech ratio lies in the configured band
	NonSpeechCompliance float64 `json:"non_speech_compliance"`
}

// Aggregate returns the stats for a metric and whether any unit produced it
func (s *MethodSummary) Aggregate(metric string) (Stats, bool) {
	st, ok := s.Aggregates[metric]
	return st, ok && st.Count > 0
}

// Result is the frozen outcome of a comparison
type Result struct {
	Methods        []*MethodSummary `json:"methods"`
	Ranking        []string         `json:"ranking"`
	Recommendation string           `json:"recommendation"`
	Units          int              `json:"units"`
	Succeeded      int              `json:"succeeded"`
}

// Summary returns the summary for the named method, or nil
func (r *Result) Summary(method string) *MethodSummary {
	for _, s := range r.Methods {
		if s.Method == method {
			return s
		}
	}
	return nil
}

// Failures returns every failed unit across methods
func (r *Result) Failures() []Failure {
	var out []Failure
	for _, s := range r.Methods {
		out = append(out, s.Failures...)
	}
	return out
}

// summarize fills aggregates and compliance rates from the records
func summarize(s *MethodSummary, band Band) {
	s.Aggregates = make(map[string]Stats)
	for _, metric := range evaluation.MetricNames() {
		var values []float64
		for _, r := range s.Records {
			if m := r.Metric(metric); m.OK() {
				values = append(values, m.Value)
			}
		}
		if len(values) > 0 {
			s.Aggregates[metric] = newStats(values)
		}
	}

	if len(s.Records) == 0 {
		return
	}

	compliant, inBand := 0, 0
	for _, r := range s.Records {
		if r.Compliance.Compliant {
			compliant++
		}
		if r.NonSpeechRatio.OK() && band.Contains(r.NonSpeechRatio.Value) {
			inBand++
		}
	}
	s.ComplianceRate = float64(compliant) / float64(len(s.Records))
	s.NonSpeechCompliance = float64(inBand) / float64(len(s.Records))
}

// rank orders summaries by mean SNR improvement (desc), then mean CV (asc),
// then non-speech compliance (desc), then name. Methods without an SNR
// improvement mean come last.
func rank(summaries []*MethodSummary) []string {
	ordered := slices.Clone(summaries)
	slices.SortStableFunc(ordered, compareSummaries)

	names := make([]string, len(ordered))
	for i, s := range ordered {
		s.Rank = i + 1
		names[i] = s.Method
	}
	return names
}

func compareSummaries(a, b *MethodSummary) int {
	aSNR, aOK := a.Aggregate(evaluation.MetricSNRImprovement)
	bSNR, bOK := b.Aggregate(evaluation.MetricSNRImprovement)
	if aOK != bOK {
		if aOK {
			return -1
		}
		return 1
	}
	if aOK && math.Abs(aSNR.Mean-bSNR.Mean) > tieTolerance {
		return cmp.Compare(bSNR.Mean, aSNR.Mean)
	}

	aCV, aCVOK := a.Aggregate(evaluation.MetricCV)
	bCV, bCVOK := b.Aggregate(evaluation.MetricCV)
	if aCVOK != bCVOK {
		if aCVOK {
			return -1
		}
		return 1
	}
	if aCVOK && aCV.Mean != bCV.Mean {
		return cmp.Compare(aCV.Mean, bCV.Mean)
	}

	if a.NonSpeechCompliance != b.NonSpeechCompliance {
		return cmp.Compare(b.NonSpeechCompliance, a.NonSpeechCompliance)
	}
	return cmp.Compare(a.Method, b.Method)
}
