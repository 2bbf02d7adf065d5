package report

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/RyanBlaney/sonido-denoise/evaluation"
	"github.com/RyanBlaney/sonido-denoise/experiment"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#00A3A3")
	mutedColor   = lipgloss.Color("#888888")
	warnColor    = lipgloss.Color("#D7875F")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	bestStyle = cellStyle.Bold(true)

	KeyStyle = lipgloss.NewStyle().Foreground(mutedColor)

	WarnStyle = lipgloss.NewStyle().Foreground(warnColor)
)

// MissingValue is shown for metrics no unit produced
const MissingValue = "-"

// tableMetrics are the aggregate columns shown in the terminal
var tableMetrics = []struct {
	metric string
	header string
}{
	{evaluation.MetricSNRImprovement, "ΔSNR dB"},
	{evaluation.MetricSNR, "SNR dB"},
	{evaluation.MetricRMSDB, "RMS dBFS"},
	{evaluation.MetricPeakDB, "Peak dBFS"},
	{evaluation.MetricCV, "CV"},
	{evaluation.MetricNonSpeechRatio, "Non-speech"},
}

// ComparisonTable renders the ranked methods as a bordered table
func ComparisonTable(result *experiment.Result) string {
	headers := []string{"#", "Method", "Files"}
	for _, m := range tableMetrics {
		headers = append(headers, m.header)
	}
	headers = append(headers, "Compliant")

	var rows [][]string
	for _, s := range rankedSummaries(result) {
		row := []string{
			strconv.Itoa(s.Rank),
			s.Method,
			fmt.Sprintf("%d/%d", len(s.Records), len(s.Records)+len(s.Failures)),
		}
		for _, m := range tableMetrics {
			row = append(row, formatAggregate(s, m.metric))
		}
		row = append(row, fmt.Sprintf("%.0f%%", 100*s.ComplianceRate))
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == 0:
				return bestStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}

// Summary renders the title, table, recommendation and failure count
func Summary(result *experiment.Result) string {
	out := TitleStyle.Render("Denoising method comparison") + "\n"
	out += ComparisonTable(result) + "\n"
	out += fmt.Sprintf("%s %s\n", KeyStyle.Render("Recommended:"), result.Recommendation)
	out += fmt.Sprintf("%s %d/%d\n", KeyStyle.Render("Units succeeded:"), result.Succeeded, result.Units)
	if failed := len(result.Failures()); failed > 0 {
		out += WarnStyle.Render(fmt.Sprintf("%d units failed; see the JSON report for details", failed)) + "\n"
	}
	return out
}

func formatAggregate(s *experiment.MethodSummary, metric string) string {
	st, ok := s.Aggregate(metric)
	if !ok {
		return MissingValue
	}
	if metric == evaluation.MetricCV || metric == evaluation.MetricNonSpeechRatio {
		return fmt.Sprintf("%.3f", st.Mean)
	}
	return fmt.Sprintf("%.2f", st.Mean)
}
