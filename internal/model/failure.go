package model

import (
	"fmt"
	"strings"
)

// Mode identifies which crawl mode produced a result.
type Mode string

const (
	// ModeStatus verifies a capped prefix of the sitemap.
	ModeStatus Mode = "status"

	// ModeDeepCrawl verifies outbound anchors on a capped set of seed pages.
	ModeDeepCrawl Mode = "deep-crawl"
)

// noun returns the word used for failures of the mode in aggregate messages.
func (m Mode) noun() string {
	if m == ModeDeepCrawl {
		return "link"
	}
	return "page"
}

// Failure is one reportable problem found during a run.
type Failure struct {
	// URL is the broken address.
	URL string `json:"url"`

	// Source is the seed page the URL was found on. Empty in status mode.
	Source string `json:"source,omitempty"`

	// StatusCode is the HTTP status, 0 for network and page errors.
	StatusCode int `json:"status_code,omitempty"`

	// Message is the error text for network and page errors.
	Message string `json:"message,omitempty"`

	// PageError marks a seed page that could not be loaded for link extraction.
	PageError bool `json:"page_error,omitempty"`
}

// String formats the failure as a single report line.
func (f Failure) String() string {
	switch {
	case f.PageError:
		return fmt.Sprintf("PAGE ERROR - %s: %s", f.URL, f.Message)
	case f.StatusCode == 0:
		return fmt.Sprintf("TIMEOUT/ERROR - %s: %s", f.URL, f.Message)
	case f.Source != "":
		return fmt.Sprintf("HTTP %d - %s  (found on %s)", f.StatusCode, f.URL, f.Source)
	default:
		return fmt.Sprintf("HTTP %d - %s", f.StatusCode, f.URL)
	}
}

// Warning is a non-fatal observation, such as an unreachable third-party link.
type Warning struct {
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// String formats the warning as a single line.
func (w Warning) String() string {
	if w.Source != "" {
		return fmt.Sprintf("could not reach %s (found on %s): %s", w.URL, w.Source, w.Message)
	}
	return fmt.Sprintf("could not reach %s: %s", w.URL, w.Message)
}

// FailureReport accumulates failures for one mode of one run.
// Failures are kept in the order they were added and flushed once via Err.
type FailureReport struct {
	mode     Mode
	failures []Failure
}

// NewFailureReport creates an empty report for the given mode.
func NewFailureReport(mode Mode) *FailureReport {
	return &FailureReport{
		mode:     mode,
		failures: make([]Failure, 0),
	}
}

// Add appends a failure.
func (r *FailureReport) Add(f Failure) {
	r.failures = append(r.failures, f)
}

// Len returns the number of failures collected.
func (r *FailureReport) Len() int {
	return len(r.failures)
}

// Failures returns a copy of the collected failures.
func (r *FailureReport) Failures() []Failure {
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Err returns nil when nothing failed, or a single *AggregateError listing
// every failure otherwise.
func (r *FailureReport) Err() error {
	if len(r.failures) == 0 {
		return nil
	}
	return &AggregateError{Mode: r.mode, Failures: r.Failures()}
}

// AggregateError is the single error raised at the end of a crawl mode.
type AggregateError struct {
	Mode     Mode
	Failures []Failure
}

// Error renders the multi-line report.
func (e *AggregateError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d broken %s(s) found:", len(e.Failures), e.Mode.noun())
	for _, f := range e.Failures {
		sb.WriteString("\n  ✗ ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// ModeResult is the outcome of one crawl mode.
type ModeResult struct {
	// Mode is the crawl mode that produced the result.
	Mode Mode `json:"mode"`

	// Candidates is the number of URLs the mode started from
	// (sitemap URLs in status mode, seed pages in deep-crawl mode).
	Candidates int `json:"candidates"`

	// Checked is the number of URLs actually verified.
	Checked int `json:"checked"`

	// Failures are the reportable problems, in discovery order.
	Failures []Failure `json:"failures,omitempty"`

	// Warnings are logged but never fail the run.
	Warnings []Warning `json:"warnings,omitempty"`

	// Results contains every classification produced, in check order.
	Results []LinkCheckResult `json:"results,omitempty"`
}

// NewModeResult creates an empty result for the given mode.
func NewModeResult(mode Mode) *ModeResult {
	return &ModeResult{
		Mode:     mode,
		Failures: make([]Failure, 0),
		Warnings: make([]Warning, 0),
		Results:  make([]LinkCheckResult, 0),
	}
}

// Passed reports whether the mode found no failures.
func (r *ModeResult) Passed() bool {
	return len(r.Failures) == 0
}
