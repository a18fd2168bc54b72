package model

import (
	"time"
)

// CheckResult is the pass/fail outcome of one named check within a run.
type CheckResult struct {
	// Name identifies the check (e.g. "sitemap-status", "hsts").
	Name string `json:"name"`

	// Passed is true when the check produced no failure.
	Passed bool `json:"passed"`

	// Message is the failure text, typically a multi-line aggregate report.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration"`
}

// RunReport collects everything produced while scanning one site.
//
// Design decision: We use a single struct for the whole run, as the scan
// pipeline does for each target, so it can be serialized to JSON and stored
// in the database without further mapping.
type RunReport struct {
	// Site is the base URL under test.
	Site string `json:"site"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total run time, set when the run completes.
	Duration time.Duration `json:"duration"`

	// SitemapURLs is the number of <loc> entries in the sitemap.
	SitemapURLs int `json:"sitemap_urls"`

	// SitemapDigest fingerprints the sitemap body so runs can be compared.
	SitemapDigest string `json:"sitemap_digest,omitempty"`

	// Checks lists the outcome of every executed check, in execution order.
	Checks []CheckResult `json:"checks"`

	// Status is the result of status mode, nil if it did not complete.
	Status *ModeResult `json:"status,omitempty"`

	// DeepCrawl is the result of deep-crawl mode, nil if it did not complete.
	DeepCrawl *ModeResult `json:"deep_crawl,omitempty"`

	// Findings contains audit findings of all severities.
	Findings []Finding `json:"findings,omitempty"`

	// TimedOut is true when the run was aborted by its overall timeout.
	TimedOut bool `json:"timed_out"`

	// Error holds a fatal run-level error message.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates a report for the given site.
func NewRunReport(site string) *RunReport {
	return &RunReport{
		Site:      site,
		StartedAt: time.Now(),
		Checks:    make([]CheckResult, 0),
		Findings:  make([]Finding, 0),
	}
}

// AddCheck records a check outcome.
func (r *RunReport) AddCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
}

// AddFindings appends audit findings.
func (r *RunReport) AddFindings(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// Passed reports whether every check passed and the run was not aborted.
func (r *RunReport) Passed() bool {
	if r.TimedOut || r.Error != "" {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// FailedChecks returns the checks that did not pass.
func (r *RunReport) FailedChecks() []CheckResult {
	failed := make([]CheckResult, 0)
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Failures returns the crawl failures of both modes, status mode first.
func (r *RunReport) Failures() []Failure {
	out := make([]Failure, 0)
	if r.Status != nil {
		out = append(out, r.Status.Failures...)
	}
	if r.DeepCrawl != nil {
		out = append(out, r.DeepCrawl.Failures...)
	}
	return out
}

// Warnings returns the crawl warnings of both modes.
func (r *RunReport) Warnings() []Warning {
	out := make([]Warning, 0)
	if r.Status != nil {
		out = append(out, r.Status.Warnings...)
	}
	if r.DeepCrawl != nil {
		out = append(out, r.DeepCrawl.Warnings...)
	}
	return out
}

// FindingsBySeverity returns findings of the given severity, in order.
func (r *RunReport) FindingsBySeverity(severity Severity) []Finding {
	out := make([]Finding, 0)
	for _, f := range r.Findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// CountBySeverity returns the number of findings per severity.
func (r *RunReport) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
