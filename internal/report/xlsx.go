package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sitescan/internal/model"
)

// Sheet names of the XLSX workbook.
const (
	SheetSummary  = "Summary"
	SheetChecks   = "Checks"
	SheetFailures = "Failures"
	SheetFindings = "Findings"
)

// XLSXWriter outputs reports as an Excel workbook with one sheet per record
// type. Every row carries the site, so batch runs share the same sheets.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
// The output is binary, so it is normally a file.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one run report as a workbook.
func (w *XLSXWriter) Write(report *model.RunReport) (int, error) {
	return w.WriteBatch([]*model.RunReport{report})
}

// WriteBatch outputs every report into a single workbook.
func (w *XLSXWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }() //nolint:errcheck // in-memory workbook

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []any
		rows   func(*model.RunReport) [][]any
	}{
		{SheetSummary, []any{"Site", "Status", "Run Date", "Duration", "Checks", "Failed Checks", "Broken Links", "Warnings", "Findings", "Sitemap URLs"}, summaryRows},
		{SheetChecks, []any{"Site", "Check", "Passed", "Duration (ms)", "Message"}, checkRows},
		{SheetFailures, []any{"Site", "Mode", "Status", "URL", "Found On", "Message"}, failureRows},
		{SheetFindings, []any{"Site", "Check", "Severity", "Title", "Value", "Location", "Description"}, findingRows},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return 0, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return 0, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}

		if err := f.SetSheetRow(sheet.name, "A1", &sheet.header); err != nil {
			return 0, fmt.Errorf("failed to write %s header: %w", sheet.name, err)
		}
		lastHeader, err := excelize.CoordinatesToCellName(len(sheet.header), 1)
		if err != nil {
			return 0, err
		}
		if err := f.SetCellStyle(sheet.name, "A1", lastHeader, headerStyle); err != nil {
			return 0, fmt.Errorf("failed to style %s header: %w", sheet.name, err)
		}
		if err := f.SetColWidth(sheet.name, "A", "A", 40); err != nil {
			return 0, err
		}

		row := 2
		for _, report := range reports {
			for _, values := range sheet.rows(report) {
				cell, err := excelize.CoordinatesToCellName(1, row)
				if err != nil {
					return 0, err
				}
				if err := f.SetSheetRow(sheet.name, cell, &values); err != nil {
					return 0, fmt.Errorf("failed to write %s row %d: %w", sheet.name, row, err)
				}
				row++
			}
		}
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

func summaryRows(report *model.RunReport) [][]any {
	s := Summarize(report)
	return [][]any{{
		s.Site, s.Status, report.StartedAt.Format("2006-01-02 15:04:05"), s.Duration,
		s.Checks, s.FailedChecks, s.Failures, s.Warnings, s.Findings, report.SitemapURLs,
	}}
}

func checkRows(report *model.RunReport) [][]any {
	rows := make([][]any, 0, len(report.Checks))
	for _, c := range report.Checks {
		rows = append(rows, []any{report.Site, c.Name, c.Passed, c.Duration.Milliseconds(), c.Message})
	}
	return rows
}

func failureRows(report *model.RunReport) [][]any {
	rows := make([][]any, 0)
	add := func(result *model.ModeResult) {
		if result == nil {
			return
		}
		for _, f := range result.Failures {
			rows = append(rows, []any{report.Site, string(result.Mode), f.StatusCode, f.URL, f.Source, f.Message})
		}
	}
	add(report.Status)
	add(report.DeepCrawl)
	return rows
}

func findingRows(report *model.RunReport) [][]any {
	rows := make([][]any, 0, len(report.Findings))
	for _, f := range report.Findings {
		rows = append(rows, []any{report.Site, f.Check, f.SeverityText, f.Title, f.Value, f.Location, f.Description})
	}
	return rows
}
