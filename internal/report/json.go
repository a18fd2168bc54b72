package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the report types carry json tags and need no
// streaming or custom codecs.
type JSONWriter struct {
	baseWriter

	// version is the sitescan version recorded in the document.
	version string

	// indentString is the indentation string. Empty means compact output.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentString = "  "
	}
}

// WithVersion records the generating version in the document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the document written by JSONWriter.
//
// Design decision: We wrap the run reports rather than adding fields to
// model.RunReport, so output-specific metadata stays out of the stored data.
type JSONReport struct {
	// Version is the sitescan version that generated this report.
	Version string `json:"version,omitempty"`

	// GeneratedAt is when the document was written.
	GeneratedAt time.Time `json:"generated_at"`

	// Passed is true when every site passed.
	Passed bool `json:"passed"`

	// Summary has one entry per site, in input order.
	Summary []Summary `json:"summary"`

	// Reports are the full run reports.
	Reports []*model.RunReport `json:"reports"`
}

// Write outputs one run report.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.WriteBatch([]*model.RunReport{report})
}

// WriteBatch outputs every report in a single document.
func (w *JSONWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	doc := JSONReport{
		Version:     w.version,
		GeneratedAt: time.Now().UTC(),
		Passed:      true,
		Summary:     make([]Summary, 0, len(reports)),
		Reports:     reports,
	}
	for _, report := range reports {
		s := Summarize(report)
		doc.Passed = doc.Passed && s.Passed
		doc.Summary = append(doc.Summary, s)
	}
	return w.writeJSON(doc)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indentString != "" {
		data, err = json.MarshalIndent(v, "", w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
