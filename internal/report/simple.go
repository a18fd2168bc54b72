package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitescan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display and CI logs.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output stays readable when piped to files or CI logs.
type SimpleWriter struct {
	baseWriter

	// showPassed controls whether passing checks are listed.
	showPassed bool

	// verbose enables finding descriptions and crawl warnings.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowPassed configures the writer to list passing checks too.
func WithShowPassed(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showPassed = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showPassed: true,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs every report followed by a summary table.
func (w *SimpleWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	var sb strings.Builder
	for _, report := range reports {
		w.writeReport(&sb, report)
	}
	w.writeBatchSummary(&sb, reports)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.RunReport) {
	w.writeHeader(sb, report)
	w.writeChecks(sb, report)
	w.writeWarnings(sb, report)
	w.writeFindings(sb, report)
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SITESCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:           %s\n", report.Site)
	fmt.Fprintf(sb, "Run Date:       %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", Summarize(report).Duration)
	fmt.Fprintf(sb, "Sitemap URLs:   %d\n", report.SitemapURLs)

	switch {
	case report.TimedOut:
		fmt.Fprintf(sb, "Status:         TIMED OUT - %s\n", report.Error)
	case report.Error != "":
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", report.Error)
	default:
		fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	}
	sb.WriteString("\n")
}

// writeChecks writes one line per check with failure messages indented below.
func (w *SimpleWriter) writeChecks(sb *strings.Builder, report *model.RunReport) {
	writeSection(sb, "CHECKS")

	if len(report.Checks) == 0 {
		sb.WriteString("  No checks executed\n\n")
		return
	}

	for _, c := range report.Checks {
		if c.Passed {
			if w.showPassed {
				fmt.Fprintf(sb, "  [PASS] %s\n", c.Name)
			}
			continue
		}
		fmt.Fprintf(sb, "  [FAIL] %s\n", c.Name)
		for _, line := range strings.Split(c.Message, "\n") {
			fmt.Fprintf(sb, "         %s\n", strings.TrimSpace(line))
		}
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %d of %d checks failed\n\n", len(report.FailedChecks()), len(report.Checks))
}

// writeWarnings writes crawl warnings when verbose output is enabled.
func (w *SimpleWriter) writeWarnings(sb *strings.Builder, report *model.RunReport) {
	warnings := report.Warnings()
	if !w.verbose || len(warnings) == 0 {
		return
	}

	writeSection(sb, "WARNINGS")
	for _, warning := range warnings {
		fmt.Fprintf(sb, "  ~ %s\n", warning.String())
	}
	sb.WriteString("\n")
}

// writeFindings writes all audit findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.RunReport) {
	if len(report.Findings) == 0 {
		return
	}

	writeSection(sb, "FINDINGS")
	for _, severity := range severities {
		findings := report.FindingsBySeverity(severity)
		if len(findings) == 0 {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(severity), severity.String())

	for _, finding := range findings {
		fmt.Fprintf(sb, "  * %s (%s)\n", finding.Title, finding.Check)
		if finding.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", finding.Value)
		}
		if finding.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", finding.Location)
		}
		if w.verbose && finding.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", finding.Description)
		}
	}
	sb.WriteString("\n")
}

// writeBatchSummary writes one row per site.
func (w *SimpleWriter) writeBatchSummary(sb *strings.Builder, reports []*model.RunReport) {
	writeSection(sb, "SUMMARY")

	passed := 0
	for _, report := range reports {
		s := Summarize(report)
		if s.Passed {
			passed++
		}
		fmt.Fprintf(sb, "  %-9s %s  (%d/%d checks failed, %d failures)\n",
			s.Status, s.Site, s.FailedChecks, s.Checks, s.Failures)
	}
	fmt.Fprintf(sb, "\n  %d of %d sites passed\n\n", passed, len(reports))
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitescan\n")
	sb.WriteString("https://github.com/nao1215/sitescan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}
