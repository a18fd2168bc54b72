package audit

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/sitescan/internal/model"
)

// gitPaths must never answer 200.
var gitPaths = []string{"/.git/config", "/.git/HEAD"}

// DefaultSensitivePaths returns config and state files that must not be served.
func DefaultSensitivePaths() []string {
	return []string{
		"/.env",
		"/config.toml",
		"/hugo.toml",
		"/credentials.json",
		"/terraform.tfstate",
		"/docker-compose.yml",
		"/wp-login.php",
		"/admin",
		"/phpinfo.php",
	}
}

// suspiciousBodySize is the size under which a 200 response is treated as
// a possible raw file rather than a soft 404 page.
const suspiciousBodySize = 50

// SensitiveFilesCheck probes for exposed repositories and configuration.
type SensitiveFilesCheck struct {
	// Paths are probed in addition to the .git files.
	Paths []string
}

// Name returns the check name.
func (c *SensitiveFilesCheck) Name() string {
	return "sensitive-files"
}

// Run probes every path.
//
// Some CDNs answer every unknown path with 200 and the site's 404 page, so a
// 200 for a config file only counts as exposure when the body is not HTML or
// is suspiciously small.
func (c *SensitiveFilesCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)

	for _, path := range gitPaths {
		resp, err := target.Get(ctx, path)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusOK {
			findings = append(findings, model.NewFinding(c.Name(), path+" must not be publicly accessible",
				model.SeverityCritical, "HTTP 200", target.URL(path)))
		}
	}

	for _, path := range c.Paths {
		resp, err := target.Get(ctx, path)
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		switch {
		case len(resp.Body) > 0 && !looksLikeHTML(resp.Body):
			findings = append(findings, model.NewFinding(c.Name(), path+" may be exposed",
				model.SeverityCritical, "HTTP 200 with non-HTML content", target.URL(path)))
		case len(resp.Body) < suspiciousBodySize:
			findings = append(findings, model.NewFinding(c.Name(), path+" may be exposed",
				model.SeverityHigh, fmt.Sprintf("HTTP 200 with suspicious small body (%d bytes)", len(resp.Body)),
				target.URL(path)))
		}
	}

	return findings, nil
}

// looksLikeHTML reports whether body contains a doctype or <html> tag.
func looksLikeHTML(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<!doctype")) || bytes.Contains(lower, []byte("<html"))
}

// notFoundProbePath does not exist on any real site.
const notFoundProbePath = "/this-page-definitely-does-not-exist-sitescan-404"

// NotFoundCacheCheck verifies the behavior of unknown paths.
type NotFoundCacheCheck struct{}

// Name returns the check name.
func (c *NotFoundCacheCheck) Name() string {
	return "not-found-cache"
}

// Run requests a path that cannot exist.
func (c *NotFoundCacheCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	resp, err := target.Get(ctx, notFoundProbePath)
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	loc := target.URL(notFoundProbePath)

	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusOK {
		findings = append(findings, model.NewFinding(c.Name(), "unknown path must return 404 or 200",
			model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), loc))
	}

	cacheControl := resp.Header.Get("Cache-Control")
	if strings.Contains(cacheControl, "immutable") || strings.Contains(cacheControl, "max-age=31536000") {
		findings = append(findings, model.NewFinding(c.Name(), "404 response is cached long-term",
			model.SeverityMedium, cacheControl, loc))
	}
	return findings, nil
}
