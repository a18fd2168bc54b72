// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for pull requests and wikis
//   - XLSXWriter: Spreadsheet output for sharing run history
//
// Design decision: We separate report writing from report data structures
// (which are in the model package). This allows adding new output formats
// without modifying the run report itself.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
