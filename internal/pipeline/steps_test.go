package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/sitescan/internal/audit"
	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/sitemap"
)

// countingFetcher returns a fixed document and counts calls.
type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(context.Context) (*sitemap.Document, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &sitemap.Document{
		Body: []byte("<urlset><url><loc>https://e.com/</loc></url></urlset>"),
		URLs: []string{"https://e.com/"},
	}, nil
}

func TestSitemapCache(t *testing.T) {
	t.Parallel()

	t.Run("fetches once", func(t *testing.T) {
		t.Parallel()

		f := &countingFetcher{}
		c := NewSitemapCache(f)
		for range 3 {
			urls, err := c.URLs(context.Background())
			if err != nil || len(urls) != 1 {
				t.Fatalf("URLs() = %v, %v", urls, err)
			}
		}
		if f.calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", f.calls.Load())
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		f := &countingFetcher{err: sitemap.ErrFetch}
		c := NewSitemapCache(f)
		for range 2 {
			if _, err := c.URLs(context.Background()); !errors.Is(err, sitemap.ErrFetch) {
				t.Fatalf("expected ErrFetch, got %v", err)
			}
		}
		if f.calls.Load() != 2 {
			t.Errorf("expected 2 fetches, got %d", f.calls.Load())
		}
	})
}

func TestSitemapStep(t *testing.T) {
	t.Parallel()

	step := NewSitemapStep(&countingFetcher{})
	report := model.NewRunReport("https://e.com")
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SitemapURLs != 1 || len(report.SitemapDigest) != 64 {
		t.Errorf("unexpected report %+v", report)
	}
}

// stubCheck returns fixed findings.
type stubCheck struct {
	findings []model.Finding
	err      error
}

func (stubCheck) Name() string { return "stub" }

func (c stubCheck) Run(context.Context, *audit.Target) ([]model.Finding, error) {
	return c.findings, c.err
}

func TestAuditStep(t *testing.T) {
	t.Parallel()

	target, err := audit.NewTarget(nil, "https://e.com")
	if err != nil {
		t.Fatal(err)
	}
	auditor := audit.NewAuditor(discardLogger())

	t.Run("warnings pass and are recorded", func(t *testing.T) {
		t.Parallel()

		step := NewAuditStep(auditor, stubCheck{findings: []model.Finding{
			model.NewFinding("", "CSP missing", model.SeverityMedium, "", ""),
		}}, target)
		report := model.NewRunReport("https://e.com")

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Findings) != 1 || report.Findings[0].Check != "stub" {
			t.Errorf("unexpected findings %+v", report.Findings)
		}
	})

	t.Run("high finding fails", func(t *testing.T) {
		t.Parallel()

		step := NewAuditStep(auditor, stubCheck{findings: []model.Finding{
			model.NewFinding("", "HSTS missing", model.SeverityHigh, "", ""),
		}}, target)
		err := step.Do(context.Background(), model.NewRunReport("https://e.com"))
		if err == nil || err.Error() != "1 problem(s) found:\n  ✗ HSTS missing" {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("context errors pass through", func(t *testing.T) {
		t.Parallel()

		step := NewAuditStep(auditor, stubCheck{err: context.DeadlineExceeded}, target)
		err := step.Do(context.Background(), model.NewRunReport("https://e.com"))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})
}

// newBlogServer serves a small blog with one broken link on its home page.
func newBlogServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("GET /sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0"?><urlset>`)
		for _, p := range []string{"/", "/posts/a/", "/posts/b/", "/about/"} {
			fmt.Fprintf(&sb, "<url><loc>%s%s</loc></url>", server.URL, p)
		}
		sb.WriteString("</urlset>")
		_, _ = io.WriteString(w, sb.String())
	})
	page := func(links ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			var sb strings.Builder
			sb.WriteString("<html><body>")
			for _, l := range links {
				fmt.Fprintf(&sb, `<a href="%s">x</a>`, l)
			}
			sb.WriteString("</body></html>")
			_, _ = io.WriteString(w, sb.String())
		}
	}
	mux.HandleFunc("GET /{$}", page("/posts/a/", "/missing/", "#top"))
	mux.HandleFunc("GET /posts/a/", page("/", "/about/"))
	mux.HandleFunc("GET /posts/b/", page("/posts/a/"))
	mux.HandleFunc("GET /about/", page())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("step order", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		p, err := DefaultPipeline(cfg, "https://blog.example.com", WithLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names := p.StepNames()
		if len(names) != 3+13 {
			t.Fatalf("expected 16 steps, got %v", names)
		}
		if names[0] != StepSitemapFetch || names[1] != StepSitemapStatus || names[2] != StepDeepCrawl {
			t.Errorf("unexpected crawl steps %v", names[:3])
		}
		if names[len(names)-1] != "mixed-content" {
			t.Errorf("expected audit checks last, got %v", names)
		}
	})

	t.Run("skips", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SkipAudit = true
		cfg.SkipDeepCrawl = true
		p, err := DefaultPipeline(cfg, "https://blog.example.com", WithLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Join(p.StepNames(), ","); got != "sitemap-fetch,sitemap-status" {
			t.Errorf("unexpected steps %s", got)
		}
	})

	t.Run("invalid ignore pattern", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{Defaults: config.SiteConfig{IgnorePatterns: []string{"("}}}
		if _, err := DefaultPipeline(cfg, "https://blog.example.com"); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ProxyAddress = "not a proxy"
		if _, err := DefaultPipeline(cfg, "https://blog.example.com"); err == nil {
			t.Error("expected error for invalid proxy")
		}
	})

	t.Run("runs against a live site", func(t *testing.T) {
		t.Parallel()

		server := newBlogServer(t)
		cfg := config.NewConfig()
		cfg.SkipAudit = true

		p, err := DefaultPipeline(cfg, server.URL, WithLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		report := model.NewRunReport(server.URL)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.SitemapURLs != 4 || report.SitemapDigest == "" {
			t.Errorf("unexpected sitemap info %d %q", report.SitemapURLs, report.SitemapDigest)
		}
		if len(report.Checks) != 3 {
			t.Fatalf("expected 3 checks, got %+v", report.Checks)
		}
		if !report.Checks[1].Passed {
			t.Errorf("expected status mode to pass: %s", report.Checks[1].Message)
		}

		deep := report.Checks[2]
		if deep.Passed {
			t.Fatal("expected deep crawl to fail")
		}
		expected := "1 broken link(s) found:\n  ✗ HTTP 404 - " + server.URL + "/missing/  (found on " + server.URL + "/)"
		if deep.Message != expected {
			t.Errorf("got:\n%s\nexpected:\n%s", deep.Message, expected)
		}
		if report.Passed() {
			t.Error("expected report to fail")
		}
	})
}
