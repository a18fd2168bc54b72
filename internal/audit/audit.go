package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/sitescan/internal/model"
)

// Check is a single site audit.
//
// Design decision: We use an interface rather than concrete types because:
//  1. Allows for easy extension with new checks
//  2. Enables testing with stub checks
//  3. Lets the configuration decide which checks run
type Check interface {
	// Name returns the check's name for logging and reporting.
	Name() string

	// Run inspects the target. An error means the check could not be
	// performed at all; problems with the site are returned as findings.
	Run(ctx context.Context, target *Target) ([]model.Finding, error)
}

// Result is the outcome of one check.
type Result struct {
	Check    string
	Findings []model.Finding
	Err      error
}

// Passed reports whether the check ran and produced no failing finding.
func (r Result) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, f := range r.Findings {
		if f.Severity.Failing() {
			return false
		}
	}
	return true
}

// Failing returns the findings that fail the check.
func (r Result) Failing() []model.Finding {
	out := make([]model.Finding, 0)
	for _, f := range r.Findings {
		if f.Severity.Failing() {
			out = append(out, f)
		}
	}
	return out
}

// Message renders the failure report of the check, or "" if it passed.
func (r Result) Message() string {
	if r.Err != nil {
		return fmt.Sprintf("%s could not run: %v", r.Check, r.Err)
	}
	failing := r.Failing()
	if len(failing) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d problem(s) found:", len(failing))
	for _, f := range failing {
		sb.WriteString("\n  ✗ ")
		sb.WriteString(f.Title)
		if f.Value != "" {
			sb.WriteString(": ")
			sb.WriteString(f.Value)
		}
	}
	return sb.String()
}

// Auditor runs a list of checks against a target.
type Auditor struct {
	checks []Check
	logger *slog.Logger
}

// NewAuditor creates an Auditor. A nil logger uses slog.Default().
func NewAuditor(logger *slog.Logger, checks ...Check) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{checks: checks, logger: logger}
}

// Checks returns the configured checks.
func (a *Auditor) Checks() []Check {
	out := make([]Check, len(a.checks))
	copy(out, a.checks)
	return out
}

// Run executes every check in order and returns one Result per check.
// Checks after a cancelled context are not run.
func (a *Auditor) Run(ctx context.Context, target *Target) ([]Result, error) {
	results := make([]Result, 0, len(a.checks))
	for _, c := range a.checks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, a.RunCheck(ctx, c, target))
	}
	return results, nil
}

// RunCheck executes a single check, stamps its findings with the check
// name and logs them.
func (a *Auditor) RunCheck(ctx context.Context, c Check, target *Target) Result {
	findings, err := c.Run(ctx, target)
	for i := range findings {
		findings[i].Check = c.Name()
	}

	for _, f := range findings {
		switch {
		case f.Severity.Failing():
			a.logger.Debug("audit finding", "check", c.Name(), "severity", f.SeverityText, "title", f.Title)
		case f.Severity >= model.SeverityLow:
			a.logger.Warn(f.Title, "check", c.Name(), "value", f.Value)
		}
	}
	if err != nil {
		a.logger.Warn("audit check failed to run", "check", c.Name(), "error", err)
	}
	return Result{Check: c.Name(), Findings: findings, Err: err}
}

// Options configures DefaultChecks.
type Options struct {
	// MinSitemapURLs is the number of <loc> entries the sitemap must exceed.
	MinSitemapURLs int

	// CriticalPaths must answer 200.
	CriticalPaths []string

	// SoftPaths must answer 200 or 404 (custom error pages).
	SoftPaths []string

	// SensitivePaths must not expose file content.
	SensitivePaths []string

	// SearchIndexPath is the JSON search index location.
	SearchIndexPath string
}

// DefaultOptions returns the options used for a Hugo style static blog.
func DefaultOptions() Options {
	return Options{
		MinSitemapURLs:  5,
		CriticalPaths:   []string{"/", "/index.json", "/index.xml", "/sitemap.xml", "/robots.txt"},
		SoftPaths:       []string{"/404.html"},
		SensitivePaths:  DefaultSensitivePaths(),
		SearchIndexPath: "/index.json",
	}
}

// DefaultChecks returns every check in reporting order.
func DefaultChecks(opts Options) []Check {
	return []Check{
		&SitemapCheck{MinURLs: opts.MinSitemapURLs},
		&RobotsCheck{},
		&CriticalAssetsCheck{Paths: opts.CriticalPaths, SoftPaths: opts.SoftPaths},
		&SearchIndexCheck{Path: opts.SearchIndexPath},
		&HTTPSCheck{},
		&HSTSCheck{},
		&FrameProtectionCheck{},
		&ContentTypeOptionsCheck{},
		&VersionDisclosureCheck{},
		&CSPCheck{},
		&SensitiveFilesCheck{Paths: opts.SensitivePaths},
		&NotFoundCacheCheck{},
		&MixedContentCheck{},
	}
}
