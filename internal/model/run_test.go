package model

import (
	"testing"
	"time"
)

// TestNewRunReport tests the RunReport constructor.
func TestNewRunReport(t *testing.T) {
	t.Parallel()

	report := NewRunReport("https://example.com")

	t.Run("sets site", func(t *testing.T) {
		t.Parallel()
		if report.Site != "https://example.com" {
			t.Errorf("got %q", report.Site)
		}
	})

	t.Run("sets start timestamp", func(t *testing.T) {
		t.Parallel()
		if report.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
		if time.Since(report.StartedAt) > time.Second {
			t.Error("StartedAt is too old")
		}
	})

	t.Run("empty report passes", func(t *testing.T) {
		t.Parallel()
		if !report.Passed() {
			t.Error("expected an empty report to pass")
		}
	})
}

func TestRunReportPassed(t *testing.T) {
	t.Parallel()

	t.Run("failed check fails the run", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport("https://example.com")
		r.AddCheck(CheckResult{Name: "sitemap", Passed: true})
		r.AddCheck(CheckResult{Name: "status", Passed: false, Message: "1 broken page(s) found:"})

		if r.Passed() {
			t.Error("expected run to fail")
		}
		failed := r.FailedChecks()
		if len(failed) != 1 || failed[0].Name != "status" {
			t.Errorf("FailedChecks() = %+v", failed)
		}
	})

	t.Run("timeout fails the run", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport("https://example.com")
		r.TimedOut = true
		if r.Passed() {
			t.Error("expected timed out run to fail")
		}
	})
}

func TestRunReportAggregates(t *testing.T) {
	t.Parallel()

	r := NewRunReport("https://example.com")
	r.Status = NewModeResult(ModeStatus)
	r.Status.Failures = append(r.Status.Failures, Failure{URL: "https://example.com/a", StatusCode: 404})
	r.DeepCrawl = NewModeResult(ModeDeepCrawl)
	r.DeepCrawl.Failures = append(r.DeepCrawl.Failures, Failure{URL: "https://example.com/b", StatusCode: 500})
	r.DeepCrawl.Warnings = append(r.DeepCrawl.Warnings, Warning{URL: "https://down.example/", Message: "refused"})
	r.AddFindings(
		NewFinding("hsts", "missing", SeverityHigh, "", ""),
		NewFinding("csp", "missing", SeverityMedium, "", ""),
		NewFinding("version-disclosure", "Server", SeverityHigh, "nginx/1.2", ""),
	)

	failures := r.Failures()
	if len(failures) != 2 || failures[0].URL != "https://example.com/a" {
		t.Errorf("Failures() = %+v", failures)
	}
	if len(r.Warnings()) != 1 {
		t.Errorf("Warnings() len = %d, expected 1", len(r.Warnings()))
	}
	if got := len(r.FindingsBySeverity(SeverityHigh)); got != 2 {
		t.Errorf("FindingsBySeverity(High) = %d, expected 2", got)
	}
	counts := r.CountBySeverity()
	if counts[SeverityMedium] != 1 || counts[SeverityHigh] != 2 {
		t.Errorf("CountBySeverity() = %v", counts)
	}
}
