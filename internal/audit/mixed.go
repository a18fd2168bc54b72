package audit

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitescan/internal/model"
)

// resourceSelectors lists elements whose URL attribute the browser loads
// as a subresource of the page.
var resourceSelectors = []struct {
	selector string
	attr     string
}{
	{"img[src]", "src"},
	{"script[src]", "src"},
	{"iframe[src]", "src"},
	{"source[src]", "src"},
	{"video[src]", "src"},
	{"audio[src]", "src"},
	{"embed[src]", "src"},
	{"object[data]", "data"},
	{`link[rel~="stylesheet"][href]`, "href"},
	{`link[rel~="icon"][href]`, "href"},
	{`link[rel~="preload"][href]`, "href"},
	{`link[rel~="manifest"][href]`, "href"},
}

// MixedContentCheck looks for http:// subresources on an https home page.
// It inspects the served HTML, so resources added later by scripts are not seen.
type MixedContentCheck struct{}

// Name returns the check name.
func (c *MixedContentCheck) Name() string {
	return "mixed-content"
}

// Run parses the home page.
func (c *MixedContentCheck) Run(ctx context.Context, target *Target) ([]model.Finding, error) {
	home, err := target.Home(ctx)
	if err != nil {
		return nil, err
	}

	loc := home.URL.String()
	if home.URL.Scheme != "https" {
		return []model.Finding{model.NewFinding(c.Name(), "home page is not served over HTTPS, mixed content not evaluated",
			model.SeverityInfo, "", loc)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(home.Body))
	if err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	seen := make(map[string]bool)
	for _, rs := range resourceSelectors {
		doc.Find(rs.selector).Each(func(_ int, s *goquery.Selection) {
			v := strings.TrimSpace(s.AttrOr(rs.attr, ""))
			if !strings.HasPrefix(strings.ToLower(v), "http://") || seen[v] {
				return
			}
			seen[v] = true
			findings = append(findings, model.NewFinding(c.Name(), "mixed content resource",
				model.SeverityHigh, v, loc))
		})
	}
	return findings, nil
}
