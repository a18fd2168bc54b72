package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sitescan/internal/model"
)

// createTestReport creates a failing report with sample data for testing.
func createTestReport() *model.RunReport {
	report := model.NewRunReport("https://blog.example.com")
	report.Duration = 2 * time.Second
	report.SitemapURLs = 42

	status := model.NewModeResult(model.ModeStatus)
	status.Checked = 30
	report.Status = status
	report.AddCheck(model.CheckResult{Name: "sitemap-status", Passed: true, Duration: time.Second})

	deep := model.NewModeResult(model.ModeDeepCrawl)
	deep.Failures = append(deep.Failures, model.Failure{
		URL:        "https://blog.example.com/missing/",
		Source:     "https://blog.example.com/",
		StatusCode: 404,
	})
	deep.Warnings = append(deep.Warnings, model.Warning{
		URL:     "https://third.party/",
		Source:  "https://blog.example.com/",
		Message: "connection refused",
	})
	report.DeepCrawl = deep
	report.AddCheck(model.CheckResult{
		Name:    "deep-crawl",
		Passed:  false,
		Message: (&model.AggregateError{Mode: model.ModeDeepCrawl, Failures: deep.Failures}).Error(),
	})

	report.AddFindings(
		model.NewFinding("hsts", "Strict-Transport-Security header is missing", model.SeverityHigh, "", "https://blog.example.com/").
			WithDescription("Browsers may connect over plain HTTP."),
		model.NewFinding("csp", "Content-Security-Policy header is missing", model.SeverityMedium, "", "https://blog.example.com/"),
	)
	report.AddCheck(model.CheckResult{Name: "hsts", Passed: false, Message: "Strict-Transport-Security header is missing"})
	return report
}

// createPassingReport creates a report where every check passed.
func createPassingReport() *model.RunReport {
	report := model.NewRunReport("https://docs.example.com")
	report.Status = model.NewModeResult(model.ModeStatus)
	report.AddCheck(model.CheckResult{Name: "sitemap-status", Passed: true})
	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and failed checks", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		expected := []string{
			"SITESCAN REPORT",
			"Site:           https://blog.example.com",
			"Sitemap URLs:   42",
			"Status:         FAILED",
			"[PASS] sitemap-status",
			"[FAIL] deep-crawl",
			"1 broken link(s) found:",
			"✗ HTTP 404 - https://blog.example.com/missing/  (found on https://blog.example.com/)",
			"2 of 3 checks failed",
			"[!!] HIGH",
			"Strict-Transport-Security header is missing (hsts)",
		}
		for _, s := range expected {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q\n%s", s, output)
			}
		}
		if strings.Contains(output, "WARNINGS") {
			t.Error("warnings should only be shown in verbose mode")
		}
		if strings.Contains(output, "Description:") {
			t.Error("descriptions should only be shown in verbose mode")
		}
	})

	t.Run("verbose output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true), WithShowPassed(false))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "could not reach https://third.party/ (found on https://blog.example.com/): connection refused") {
			t.Error("expected warning line")
		}
		if !strings.Contains(output, "Description: Browsers may connect over plain HTTP.") {
			t.Error("expected finding description")
		}
		if strings.Contains(output, "[PASS]") {
			t.Error("passing checks should be hidden")
		}
	})

	t.Run("timed out run", func(t *testing.T) {
		t.Parallel()

		report := createPassingReport()
		report.TimedOut = true
		report.Error = "run aborted during deep-crawl: context deadline exceeded"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Status:         TIMED OUT - run aborted during deep-crawl") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("batch summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).WriteBatch([]*model.RunReport{createTestReport(), createPassingReport()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, buffer has %d", n, buf.Len())
		}

		output := buf.String()
		if strings.Count(output, "SITESCAN REPORT") != 2 {
			t.Error("expected one section per site")
		}
		if !strings.Contains(output, "1 of 2 sites passed") {
			t.Errorf("unexpected summary:\n%s", output)
		}
		if !strings.Contains(output, "FAILED    https://blog.example.com  (2/3 checks failed, 1 failures)") {
			t.Errorf("unexpected summary row:\n%s", output)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("single report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("v1.2.3"))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var doc JSONReport
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Version != "v1.2.3" || doc.Passed {
			t.Errorf("unexpected document %+v", doc)
		}
		if len(doc.Reports) != 1 || len(doc.Summary) != 1 {
			t.Fatalf("expected one report and summary, got %d/%d", len(doc.Reports), len(doc.Summary))
		}
		s := doc.Summary[0]
		if s.Status != "FAILED" || s.FailedChecks != 2 || s.Failures != 1 || s.Warnings != 1 || s.Findings != 2 {
			t.Errorf("unexpected summary %+v", s)
		}
		if got := doc.Reports[0].DeepCrawl.Failures[0].URL; got != "https://blog.example.com/missing/" {
			t.Errorf("unexpected failure URL %q", got)
		}
		if strings.Contains(buf.String(), "\n  ") {
			t.Error("expected compact output")
		}
	})

	t.Run("pretty print batch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		if _, err := w.WriteBatch([]*model.RunReport{createPassingReport(), createPassingReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"passed\": true") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "}\n") {
			t.Error("expected trailing newline")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("single report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		expected := []string{
			"# Sitescan Report",
			"`https://blog.example.com`",
			"2 of 3 checks failed.",
			"Sitemap Status",
			"Deep Crawl",
			"```mermaid",
			"https://blog.example.com/missing/",
			"**🟠 High**",
			"Strict-Transport-Security header is missing",
			"Browsers may connect over plain HTTP.",
		}
		for _, s := range expected {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q\n%s", s, output)
			}
		}
	})

	t.Run("passing report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createPassingReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "All checks passed.") {
			t.Error("expected success alert")
		}
		if strings.Contains(output, "mermaid") || strings.Contains(output, "Broken Links") {
			t.Error("passing report should not have a chart or broken link table")
		}
	})

	t.Run("batch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		reports := []*model.RunReport{createTestReport(), createPassingReport()}
		if _, err := NewMarkdownWriter(&buf).WriteBatch(reports); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, s := range []string{"## Summary", "## https://blog.example.com", "## https://docs.example.com"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q", s)
			}
		}
	})
}

// TestXLSXWriter tests the Excel report writer.
func TestXLSXWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	reports := []*model.RunReport{createTestReport(), createPassingReport()}
	n, err := NewXLSXWriter(&buf).WriteBatch(reports)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() || n == 0 {
		t.Errorf("returned %d bytes, buffer has %d", n, buf.Len())
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to read workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	expectedSheets := []string{SheetSummary, SheetChecks, SheetFailures, SheetFindings}
	if len(sheets) != len(expectedSheets) {
		t.Fatalf("sheets = %v", sheets)
	}
	for i, name := range expectedSheets {
		if sheets[i] != name {
			t.Errorf("sheet %d = %q, expected %q", i, sheets[i], name)
		}
	}

	testCases := []struct {
		sheet string
		rows  int
		cell  string
		value string
	}{
		{SheetSummary, 3, "B2", "FAILED"},
		{SheetSummary, 3, "B3", "PASSED"},
		{SheetChecks, 5, "B3", "deep-crawl"},
		{SheetFailures, 2, "D2", "https://blog.example.com/missing/"},
		{SheetFindings, 3, "C2", "HIGH"},
	}
	for _, tc := range testCases {
		rows, err := f.GetRows(tc.sheet)
		if err != nil {
			t.Fatalf("GetRows(%s) error = %v", tc.sheet, err)
		}
		if len(rows) != tc.rows {
			t.Errorf("%s has %d rows, expected %d", tc.sheet, len(rows), tc.rows)
		}
		got, err := f.GetCellValue(tc.sheet, tc.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s, %s) error = %v", tc.sheet, tc.cell, err)
		}
		if got != tc.value {
			t.Errorf("%s!%s = %q, expected %q", tc.sheet, tc.cell, got, tc.value)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(*model.RunReport) (int, error)        { return 0, errors.New("disk full") }
func (failingWriter) WriteBatch([]*model.RunReport) (int, error) { return 0, errors.New("disk full") }

// TestMultiWriter tests writing to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := m.Write(createPassingReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))

		if _, err := m.WriteBatch([]*model.RunReport{createPassingReport()}); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 2, "ab"},
		{"ééééééé", 5, "éé..."},
	}
	for _, tc := range testCases {
		if got := truncateString(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
