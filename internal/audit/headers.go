package audit

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/sitescan/internal/model"
)

// DefaultHSTSMinMaxAge is six months, the minimum max-age OWASP recommends.
const DefaultHSTSMinMaxAge = 15768000

var (
	// versionPattern detects version numbers such as "nginx/1.18" or "PHP/8.2.1".
	versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

	// maxAgePattern extracts the HSTS max-age directive.
	maxAgePattern = regexp.MustCompile(`(?i)max-age\s*=\s*"?(\d+)"?`)
)

// HTTPSCheck verifies that the home page ends up on HTTPS.
type HTTPSCheck struct{}

// Name returns the check name.
func (c *HTTPSCheck) Name() string {
	return "https"
}

// Run inspects the final URL of the home page.
func (c *HTTPSCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	final := home.URL.String()

	if home.StatusCode >= http.StatusBadRequest {
		findings = append(findings, model.NewFinding(c.Name(), "home page returned an error status",
			model.SeverityHigh, strconv.Itoa(home.StatusCode), final))
	}
	if home.URL.Scheme != "https" {
		findings = append(findings, model.NewFinding(c.Name(), "final URL must be HTTPS",
			model.SeverityHigh, final, final))
	}
	return findings, nil
}

// HSTSCheck verifies Strict-Transport-Security.
type HSTSCheck struct {
	// MinMaxAge defaults to DefaultHSTSMinMaxAge.
	MinMaxAge int64
}

// Name returns the check name.
func (c *HSTSCheck) Name() string {
	return "hsts"
}

// Run inspects the home page headers.
func (c *HSTSCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	minAge := c.MinMaxAge
	if minAge <= 0 {
		minAge = DefaultHSTSMinMaxAge
	}

	loc := home.URL.String()
	hsts := home.Header.Get("Strict-Transport-Security")
	if hsts == "" {
		return []model.Finding{model.NewFinding(c.Name(), "Strict-Transport-Security header is missing",
			model.SeverityHigh, "", loc)}, nil
	}

	m := maxAgePattern.FindStringSubmatch(hsts)
	if m == nil {
		return []model.Finding{model.NewFinding(c.Name(), "HSTS header missing max-age directive",
			model.SeverityHigh, hsts, loc)}, nil
	}

	maxAge, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || maxAge < minAge {
		return []model.Finding{model.NewFinding(c.Name(),
			fmt.Sprintf("HSTS max-age is too short (minimum %ds)", minAge),
			model.SeverityHigh, hsts, loc)}, nil
	}

	return []model.Finding{model.NewFinding(c.Name(), "HSTS", model.SeverityInfo, hsts, loc)}, nil
}

// FrameProtectionCheck verifies clickjacking protection.
type FrameProtectionCheck struct{}

// Name returns the check name.
func (c *FrameProtectionCheck) Name() string {
	return "frame-protection"
}

// Run accepts X-Frame-Options or a CSP frame-ancestors / frame-src 'none' directive.
func (c *FrameProtectionCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	loc := home.URL.String()
	xfo := home.Header.Get("X-Frame-Options")
	csp := home.Header.Get("Content-Security-Policy")

	switch {
	case xfo != "":
		return []model.Finding{model.NewFinding(c.Name(), "X-Frame-Options", model.SeverityInfo, xfo, loc)}, nil
	case strings.Contains(csp, "frame-ancestors"), strings.Contains(csp, "frame-src 'none'"):
		return []model.Finding{model.NewFinding(c.Name(), "CSP frame protection", model.SeverityInfo, csp, loc)}, nil
	default:
		return []model.Finding{model.NewFinding(c.Name(),
			"neither X-Frame-Options nor CSP frame-ancestors is set (clickjacking risk)",
			model.SeverityHigh, "", loc)}, nil
	}
}

// ContentTypeOptionsCheck verifies X-Content-Type-Options: nosniff.
type ContentTypeOptionsCheck struct{}

// Name returns the check name.
func (c *ContentTypeOptionsCheck) Name() string {
	return "content-type-options"
}

// Run inspects the home page headers.
func (c *ContentTypeOptionsCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	loc := home.URL.String()
	xcto := home.Header.Get("X-Content-Type-Options")
	if xcto == "" {
		return []model.Finding{model.NewFinding(c.Name(), "X-Content-Type-Options header is missing",
			model.SeverityHigh, "", loc)}, nil
	}
	if !strings.Contains(strings.ToLower(xcto), "nosniff") {
		return []model.Finding{model.NewFinding(c.Name(), "X-Content-Type-Options is not nosniff",
			model.SeverityHigh, xcto, loc)}, nil
	}
	return []model.Finding{}, nil
}

// VersionDisclosureCheck flags headers that leak software versions.
// A versioned X-Powered-By fails; a versioned Server header only warns
// because it is usually controlled by the CDN.
type VersionDisclosureCheck struct{}

// Name returns the check name.
func (c *VersionDisclosureCheck) Name() string {
	return "version-disclosure"
}

// Run inspects the home page headers.
func (c *VersionDisclosureCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	loc := home.URL.String()

	if server := home.Header.Get("Server"); versionPattern.MatchString(server) {
		findings = append(findings, model.NewFinding(c.Name(), "Server header discloses version",
			model.SeverityLow, server, loc))
	}
	if poweredBy := home.Header.Get("X-Powered-By"); versionPattern.MatchString(poweredBy) {
		findings = append(findings, model.NewFinding(c.Name(), "X-Powered-By header leaks technology version",
			model.SeverityHigh, poweredBy, loc))
	}
	return findings, nil
}

// CSPCheck verifies Content-Security-Policy. A missing header is a warning;
// a present but trivially permissive one fails.
type CSPCheck struct{}

// Name returns the check name.
func (c *CSPCheck) Name() string {
	return "csp"
}

// Run inspects the home page headers.
func (c *CSPCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	loc := home.URL.String()
	csp := home.Header.Get("Content-Security-Policy")

	if csp == "" {
		return []model.Finding{model.NewFinding(c.Name(), "Content-Security-Policy header is missing",
			model.SeverityMedium, "", loc).
			WithDescription("Configure a response headers policy, e.g. default-src 'self'.")}, nil
	}

	findings := make([]model.Finding, 0)
	if len(strings.TrimSpace(csp)) <= 10 {
		findings = append(findings, model.NewFinding(c.Name(), "Content-Security-Policy is trivially short",
			model.SeverityHigh, csp, loc))
	}
	if strings.Contains(csp, "default-src *") {
		findings = append(findings, model.NewFinding(c.Name(), "Content-Security-Policy allows everything (default-src *)",
			model.SeverityHigh, csp, loc))
	}
	if len(findings) == 0 {
		findings = append(findings, model.NewFinding(c.Name(), "CSP", model.SeverityInfo, csp, loc))
	}
	return findings, nil
}
