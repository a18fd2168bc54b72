package report

import (
	"io"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write run reports in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report of a single site run.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteBatch outputs the reports of several sites as one document,
	// followed by a per-site summary.
	WriteBatch(reports []*model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the reports to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severities lists severity levels in display order (most severe first).
var severities = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// statusText returns a one-word run status.
func statusText(report *model.RunReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT"
	case report.Error != "":
		return "ERROR"
	case report.Passed():
		return "PASSED"
	default:
		return "FAILED"
	}
}

// Summary condenses a run report into counts.
type Summary struct {
	Site         string `json:"site"`
	Status       string `json:"status"`
	Passed       bool   `json:"passed"`
	Checks       int    `json:"checks"`
	FailedChecks int    `json:"failed_checks"`
	Failures     int    `json:"failures"`
	Warnings     int    `json:"warnings"`
	Findings     int    `json:"findings"`
	Duration     string `json:"duration"`
}

// Summarize builds the Summary of a run report.
func Summarize(report *model.RunReport) Summary {
	return Summary{
		Site:         report.Site,
		Status:       statusText(report),
		Passed:       report.Passed(),
		Checks:       len(report.Checks),
		FailedChecks: len(report.FailedChecks()),
		Failures:     len(report.Failures()),
		Warnings:     len(report.Warnings()),
		Findings:     len(report.Findings),
		Duration:     report.Duration.Round(time.Millisecond).String(),
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
