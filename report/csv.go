package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/experiment"
)

// WriteRecordsCSV writes one row per record. A metric that failed to
// compute leaves its cell empty and is listed in the errors column as
// metric=kind.
func WriteRecordsCSV(w io.Writer, records []*evaluation.Record) error {
	cw := csv.NewWriter(w)

	header := append([]string{"file_id", "method"}, evaluation.MetricNames()...)
	header = append(header, "compliant", "input_compliant", "errors")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{r.FileID, r.Method}
		for _, name := range evaluation.MetricNames() {
			row = append(row, formatMeasurement(r.Metric(name)))
		}
		row = append(row,
			strconv.FormatBool(r.Compliance.Compliant),
			strconv.FormatBool(r.InputCompliance.Compliant),
			failureSummary(r))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteRecordsCSVFile writes records to path
func WriteRecordsCSVFile(path string, records []*evaluation.Record) error {
	return writeFile(path, func(w io.Writer) error { return WriteRecordsCSV(w, records) })
}

// WriteComparisonCSV writes one row per method in rank order with the mean
// of every metric
func WriteComparisonCSV(w io.Writer, result *experiment.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"rank", "method", "files", "failures"}
	for _, name := range evaluation.MetricNames() {
		header = append(header, name+"_mean")
	}
	header = append(header, "compliance_rate", "non_speech_compliance")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range rankedSummaries(result) {
		row := []string{
			strconv.Itoa(s.Rank),
			s.Method,
			strconv.Itoa(len(s.Records)),
			strconv.Itoa(len(s.Failures)),
		}
		for _, name := range evaluation.MetricNames() {
			cell := ""
			if st, ok := s.Aggregate(name); ok {
				cell = formatFloat(st.Mean)
			}
			row = append(row, cell)
		}
		row = append(row, formatFloat(s.ComplianceRate), formatFloat(s.NonSpeechCompliance))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteComparisonCSVFile writes the comparison summary to path
func WriteComparisonCSVFile(path string, result *experiment.Result) error {
	return writeFile(path, func(w io.Writer) error { return WriteComparisonCSV(w, result) })
}

// rankedSummaries returns summaries in ranking order
func rankedSummaries(result *experiment.Result) []*experiment.MethodSummary {
	out := make([]*experiment.MethodSummary, 0, len(result.Methods))
	for _, name := range result.Ranking {
		if s := result.Summary(name); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func formatMeasurement(m evaluation.Measurement) string {
	if !m.OK() {
		return ""
	}
	return formatFloat(m.Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func failureSummary(r *evaluation.Record) string {
	failures := r.Failures()
	if len(failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(failures))
	for name, err := range failures {
		parts = append(parts, fmt.Sprintf("%s=%s", name, audio.Kind(err)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
