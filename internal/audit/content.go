package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/sitemap"
)

// SitemapCheck verifies that /sitemap.xml is a non-trivial <urlset>.
type SitemapCheck struct {
	// MinURLs is the number of <loc> entries the sitemap must exceed.
	MinURLs int
}

// Name returns the check name.
func (c *SitemapCheck) Name() string {
	return "sitemap"
}

// Run fetches and inspects the sitemap.
func (c *SitemapCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	resp, err := target.Get(ctx, sitemap.DefaultPath)
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	loc := target.URL(sitemap.DefaultPath)

	if resp.StatusCode != http.StatusOK {
		return append(findings, model.NewFinding(c.Name(), "sitemap.xml must return 200",
			model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), loc)), nil
	}

	doc := &sitemap.Document{Body: resp.Body}
	if !doc.HasURLSet() {
		findings = append(findings, model.NewFinding(c.Name(), "sitemap.xml is not a <urlset> with <loc> entries",
			model.SeverityHigh, "", loc))
	}

	count := bytes.Count(resp.Body, []byte("<loc>"))
	if count <= c.MinURLs {
		findings = append(findings, model.NewFinding(c.Name(),
			fmt.Sprintf("sitemap must contain more than %d URLs", c.MinURLs),
			model.SeverityHigh, fmt.Sprintf("%d URLs", count), loc))
	}

	findings = append(findings, model.NewFinding(c.Name(), "sitemap size",
		model.SeverityInfo, fmt.Sprintf("%d URLs", count), loc))
	return findings, nil
}

// RobotsCheck verifies that robots.txt allows indexing and declares a sitemap.
type RobotsCheck struct{}

// Name returns the check name.
func (c *RobotsCheck) Name() string {
	return "robots"
}

// Run fetches and parses robots.txt.
func (c *RobotsCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	resp, err := target.Get(ctx, "/robots.txt")
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	loc := target.URL("/robots.txt")

	if resp.StatusCode != http.StatusOK {
		return append(findings, model.NewFinding(c.Name(), "robots.txt must return 200",
			model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), loc)), nil
	}

	robots, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		return append(findings, model.NewFinding(c.Name(), "robots.txt cannot be parsed",
			model.SeverityHigh, err.Error(), loc)), nil
	}

	if !robots.TestAgent("/", "*") {
		findings = append(findings, model.NewFinding(c.Name(), "robots.txt disallows crawling the whole site",
			model.SeverityHigh, "Disallow: /", loc))
	}

	for _, agent := range namedAgents(resp.Body) {
		if g := robots.FindGroup(agent); g != nil && !g.Test("/") {
			findings = append(findings, model.NewFinding(c.Name(), "robots.txt disallows the whole site for a crawler",
				model.SeverityMedium, "User-agent: "+agent+" / Disallow: /", loc))
		}
	}

	if len(robots.Sitemaps) == 0 {
		findings = append(findings, model.NewFinding(c.Name(), "robots.txt has no Sitemap: declaration",
			model.SeverityHigh, "", loc))
	} else {
		findings = append(findings, model.NewFinding(c.Name(), "declared sitemap",
			model.SeverityInfo, strings.Join(robots.Sitemaps, ", "), loc))
	}

	return findings, nil
}

// namedAgents returns the distinct User-agent values of body other than "*",
// in order of appearance.
func namedAgents(body []byte) []string {
	var agents []string
	seen := make(map[string]bool)
	for line := range strings.Lines(string(body)) {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "user-agent") {
			continue
		}
		agent := strings.TrimSpace(value)
		if agent == "" || agent == "*" || seen[strings.ToLower(agent)] {
			continue
		}
		seen[strings.ToLower(agent)] = true
		agents = append(agents, agent)
	}
	return agents
}

// CriticalAssetsCheck verifies that the pages and feeds the site depends on are served.
type CriticalAssetsCheck struct {
	// Paths must answer 200.
	Paths []string

	// SoftPaths must answer 200 or 404.
	SoftPaths []string
}

// Name returns the check name.
func (c *CriticalAssetsCheck) Name() string {
	return "critical-assets"
}

// Run requests every configured path.
func (c *CriticalAssetsCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)

	for _, path := range c.Paths {
		resp, err := target.Get(ctx, path)
		if err != nil {
			findings = append(findings, model.NewFinding(c.Name(), path+": request failed",
				model.SeverityHigh, err.Error(), target.URL(path)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			findings = append(findings, model.NewFinding(c.Name(), path+": expected 200",
				model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), target.URL(path)))
		}
	}

	for _, path := range c.SoftPaths {
		resp, err := target.Get(ctx, path)
		if err != nil {
			findings = append(findings, model.NewFinding(c.Name(), path+": request failed",
				model.SeverityHigh, err.Error(), target.URL(path)))
			continue
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			findings = append(findings, model.NewFinding(c.Name(), path+": expected 404 or 200",
				model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), target.URL(path)))
		}
	}

	return findings, nil
}

// SearchIndexCheck verifies the client-side search index.
type SearchIndexCheck struct {
	// Path is the index location, "/index.json" when empty.
	Path string
}

// Name returns the check name.
func (c *SearchIndexCheck) Name() string {
	return "search-index"
}

// Run fetches the index and checks its shape.
func (c *SearchIndexCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	path := c.Path
	if path == "" {
		path = "/index.json"
	}

	resp, err := target.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	loc := target.URL(path)

	if resp.StatusCode != http.StatusOK {
		return append(findings, model.NewFinding(c.Name(), "search index must return 200",
			model.SeverityHigh, fmt.Sprintf("got %d", resp.StatusCode), loc)), nil
	}

	var raw any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return append(findings, model.NewFinding(c.Name(), "search index is not valid JSON",
			model.SeverityHigh, err.Error(), loc)), nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return append(findings, model.NewFinding(c.Name(), "search index must be a JSON array",
			model.SeverityHigh, fmt.Sprintf("%T", raw), loc)), nil
	}
	if len(entries) == 0 {
		return append(findings, model.NewFinding(c.Name(), "search index must have at least 1 entry",
			model.SeverityHigh, "", loc)), nil
	}

	first, ok := entries[0].(map[string]any)
	if !ok {
		return append(findings, model.NewFinding(c.Name(), "search index entries must be objects",
			model.SeverityHigh, "", loc)), nil
	}
	for _, key := range []string{"title", "permalink"} {
		if _, ok := first[key]; !ok {
			findings = append(findings, model.NewFinding(c.Name(), "search index entry has no "+key,
				model.SeverityHigh, "", loc))
		}
	}

	findings = append(findings, model.NewFinding(c.Name(), "search index size",
		model.SeverityInfo, fmt.Sprintf("%d entries", len(entries)), loc))
	return findings, nil
}
