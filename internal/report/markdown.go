package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pull request comments and wiki pages.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, alerts and mermaid charts without
// hand-escaping.
type MarkdownWriter struct {
	baseWriter

	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs one run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Sitescan Report")
	md.PlainText("")
	w.writeReport(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a summary table followed by one section per site.
func (w *MarkdownWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Sitescan Report")
	md.PlainText("")
	w.writeBatchSummary(md, reports)
	for _, report := range reports {
		md.H2(report.Site)
		md.PlainText("")
		w.writeReport(md, report)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.RunReport) {
	w.writeHeader(md, report)
	w.writeChecks(md, report)
	w.writeFailures(md, report)
	w.writeFindings(md, report)
}

// writeHeader writes the run information table and the status alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Run Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", Summarize(report).Duration},
			{"Sitemap URLs", strconv.Itoa(report.SitemapURLs)},
			{"Status", statusEmoji(report) + " " + statusText(report)},
		},
	})
	md.PlainText("")

	failed := len(report.FailedChecks())
	switch {
	case report.TimedOut:
		md.Warningf("Run timed out: %s", report.Error)
	case report.Error != "":
		md.Cautionf("Run failed: %s", report.Error)
	case failed > 0:
		md.Cautionf("%d of %d checks failed.", failed, len(report.Checks))
	default:
		md.Tip("All checks passed.")
	}
	md.PlainText("")
}

// writeChecks writes the check table and a mermaid pie of pass/fail counts.
func (w *MarkdownWriter) writeChecks(md *markdown.Markdown, report *model.RunReport) {
	md.H3("Checks")
	md.PlainText("")

	if len(report.Checks) == 0 {
		md.PlainText("No checks executed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		result := "✅ pass"
		if !c.Passed {
			result = "❌ fail"
		}
		rows = append(rows, []string{w.checkTitle(c.Name), result, c.Duration.String()})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	failed := len(report.FailedChecks())
	if failed > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Check Results"),
			piechart.WithShowData(true),
		)
		chart.LabelAndIntValue("Passed", uint64(len(report.Checks)-failed))
		chart.LabelAndIntValue("Failed", uint64(failed))
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeFailures writes the crawl failures of both modes.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	md.H3("Broken Links")
	md.PlainText("")

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		status := strconv.Itoa(f.StatusCode)
		switch {
		case f.PageError:
			status = "page error"
		case f.StatusCode == 0:
			status = "timeout/error"
		}
		source := f.Source
		if source == "" {
			source = "sitemap"
		}
		rows = append(rows, []string{status, f.URL, source, truncateString(f.Message, 60)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "URL", "Found On", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes audit findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Findings) == 0 {
		return
	}

	md.H3("Findings")
	md.PlainText("")

	for _, severity := range severities {
		findings := report.FindingsBySeverity(severity)
		if len(findings) == 0 {
			continue
		}

		md.PlainText("**" + severityEmoji(severity) + " " + w.title.String(severity.String()) + "**")
		md.PlainText("")

		rows := make([][]string, len(findings))
		for i, f := range findings {
			rows[i] = []string{
				w.checkTitle(f.Check),
				f.Title,
				dash(truncateString(f.Value, 50)),
				dash(truncateString(f.Location, 60)),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Check", "Title", "Value", "Location"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range findings {
			if f.Description != "" {
				md.Details(f.Title, f.Description)
			}
		}
	}
}

// writeBatchSummary writes one row per site.
func (w *MarkdownWriter) writeBatchSummary(md *markdown.Markdown, reports []*model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		s := Summarize(report)
		rows = append(rows, []string{
			s.Site,
			statusEmoji(report) + " " + s.Status,
			strconv.Itoa(s.FailedChecks) + "/" + strconv.Itoa(s.Checks),
			strconv.Itoa(s.Failures),
			s.Duration,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Site", "Status", "Failed Checks", "Broken Links", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [sitescan](https://github.com/nao1215/sitescan)*")
}

// checkTitle turns a check name such as "sitemap-status" into "Sitemap Status".
func (w *MarkdownWriter) checkTitle(name string) string {
	return w.title.String(strings.ReplaceAll(name, "-", " "))
}

func statusEmoji(report *model.RunReport) string {
	switch {
	case report.TimedOut:
		return "⚠️"
	case report.Passed():
		return "✅"
	default:
		return "❌"
	}
}

func severityEmoji(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityHigh:
		return "🟠"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
