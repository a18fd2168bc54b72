package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/report"
	"github.com/nao1215/sitescan/internal/transport"
)

// newSiteServer starts a small static blog. When broken is true the home
// page links to a page that does not exist.
func newSiteServer(t *testing.T, broken bool) *httptest.Server {
	t.Helper()

	pages := []string{"/", "/posts/first/", "/posts/second/", "/posts/third/", "/about/", "/tags/"}

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("GET /sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for _, p := range pages {
			fmt.Fprintf(&sb, "<url><loc>%s%s</loc></url>", server.URL, p)
		}
		sb.WriteString("</urlset>")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, sb.String())
	})

	homeLinks := []string{"/posts/first/", "/about/", "mailto:me@example.com"}
	if broken {
		homeLinks = append(homeLinks, "/missing/")
	}
	for _, p := range pages {
		links := []string{"/", "/tags/"}
		if p == "/" {
			links = homeLinks
		}
		pattern := "GET " + p
		if p == "/" {
			pattern = "GET /{$}"
		}
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			var sb strings.Builder
			sb.WriteString("<!DOCTYPE html><html><body>")
			for _, l := range links {
				fmt.Fprintf(&sb, `<a href="%s">link</a>`, l)
			}
			sb.WriteString("</body></html>")
			_, _ = io.WriteString(w, sb.String())
		})
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// emptyConfigFile writes a config file without site settings so tests never
// pick up a .sitescan from the working or home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".sitescan")
	if err := os.WriteFile(path, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCmd(t *testing.T) {
	t.Parallel()

	t.Run("healthy site passes and is stored", func(t *testing.T) {
		t.Parallel()

		server := newSiteServer(t, false)
		dbDir := t.TempDir()

		stdout, _, err := executeCommand(t, "scan", "--skip-audit",
			"-c", emptyConfigFile(t), "--db-dir", dbDir, "--format", "json", server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var doc report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
		}
		if !doc.Passed || len(doc.Reports) != 1 {
			t.Fatalf("unexpected document %+v", doc.Summary)
		}
		r := doc.Reports[0]
		if r.Site != server.URL {
			t.Errorf("expected trailing slash to be trimmed, got %q", r.Site)
		}
		if r.SitemapURLs != 6 || len(r.Checks) != 3 {
			t.Errorf("unexpected report: %d sitemap URLs, checks %+v", r.SitemapURLs, r.Checks)
		}

		db, err := database.Open(dbDir, database.Options{})
		if err != nil {
			t.Fatalf("expected database to exist: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), server.URL, 0)
		if err != nil || len(runs) != 1 || !runs[0].Passed {
			t.Errorf("ListRuns() = %+v, %v", runs, err)
		}
	})

	t.Run("broken link fails the run", func(t *testing.T) {
		t.Parallel()

		server := newSiteServer(t, true)
		stdout, _, err := executeCommand(t, "scan", "--skip-audit", "--no-save",
			"-c", emptyConfigFile(t), server.URL)
		if !errors.Is(err, errChecksFailed) {
			t.Fatalf("expected errChecksFailed, got %v", err)
		}

		expected := []string{
			"[PASS] sitemap-status",
			"[FAIL] deep-crawl",
			"✗ HTTP 404 - " + server.URL + "/missing/  (found on " + server.URL + "/)",
			"Status:         FAILED",
		}
		for _, want := range expected {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("batch report to file", func(t *testing.T) {
		t.Parallel()

		healthy := newSiteServer(t, false)
		broken := newSiteServer(t, true)
		out := filepath.Join(t.TempDir(), "reports", "report.md")

		stdout, _, err := executeCommand(t, "scan", "--skip-audit", "--no-save", "-b", "2",
			"-c", emptyConfigFile(t), "--format", "markdown", "-o", out, healthy.URL, broken.URL)
		if !errors.Is(err, errChecksFailed) {
			t.Fatalf("expected errChecksFailed, got %v", err)
		}
		if stdout != "" {
			t.Errorf("expected nothing on stdout, got:\n%s", stdout)
		}

		content, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		for _, want := range []string{"## Summary", "## " + healthy.URL, "## " + broken.URL, "/missing/"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("expected %q in report", want)
			}
		}
	})

	t.Run("xlsx report", func(t *testing.T) {
		t.Parallel()

		server := newSiteServer(t, false)
		out := filepath.Join(t.TempDir(), "report.xlsx")

		_, _, err := executeCommand(t, "scan", "--skip-audit", "--skip-deep-crawl", "--no-save",
			"-c", emptyConfigFile(t), "--format", "xlsx", "-o", out, server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(out)
		if err != nil || info.Size() == 0 {
			t.Errorf("expected a non-empty workbook: %v", err)
		}
	})

	t.Run("configuration errors", func(t *testing.T) {
		t.Parallel()

		cfgFile := emptyConfigFile(t)
		testCases := []struct {
			name string
			args []string
			want error
		}{
			{"invalid target", []string{"scan", "-c", cfgFile, "ftp://example.com"}, config.ErrInvalidTarget},
			{"xlsx to stdout", []string{"scan", "-c", cfgFile, "--format", "xlsx", "https://example.com"}, config.ErrReportFileRequired},
			{"unknown format", []string{"scan", "-c", cfgFile, "--format", "pdf", "https://example.com"}, config.ErrUnknownReportFormat},
			{"zero budget", []string{"scan", "-c", cfgFile, "--link-budget", "0", "https://example.com"}, config.ErrInvalidBudget},
			{"missing config", []string{"scan", "-c", filepath.Join(t.TempDir(), "nope.yaml"), "https://example.com"}, config.ErrConfigNotFound},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				_, _, err := executeCommand(t, tc.args...)
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Run("falls back to SITE_URL", func(t *testing.T) {
		t.Setenv(config.EnvSiteURL, "https://env.example.com/")

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t)}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://env.example.com" {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
	})

	t.Run("no target", func(t *testing.T) {
		t.Setenv(config.EnvSiteURL, "")

		_, _, err := executeCommand(t, "scan", "-c", emptyConfigFile(t))
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})

	t.Run("flags", func(t *testing.T) {
		t.Setenv(config.EnvSiteURL, "")

		cmd := NewScanCmd()
		err := cmd.ParseFlags([]string{
			"-c", emptyConfigFile(t),
			"--status-budget", "5", "--seed-budget", "3", "--link-budget", "7",
			"--link-timeout", "3s", "-t", "1m", "--rate-limit", "2.5",
			"--render", "--insecure", "--no-save", "--skip-audit",
		})
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://a.example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.StatusBudget != 5 || cfg.SeedBudget != 3 || cfg.LinkBudget != 7 {
			t.Errorf("unexpected budgets %d/%d/%d", cfg.StatusBudget, cfg.SeedBudget, cfg.LinkBudget)
		}
		if cfg.LinkTimeout != 3*time.Second || cfg.RunTimeout != time.Minute || cfg.StatusTimeout != config.DefaultStatusTimeout {
			t.Errorf("unexpected timeouts %v/%v/%v", cfg.LinkTimeout, cfg.RunTimeout, cfg.StatusTimeout)
		}
		if cfg.RateLimit != 2.5 || !cfg.Render || !cfg.InsecureSkipVerify || !cfg.SkipAudit || cfg.SaveToDB {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.DBDir != config.XDGDataDir() {
			t.Errorf("expected XDG data dir, got %q", cfg.DBDir)
		}
		if cfg.SiteConfigs == nil {
			t.Error("expected site configs to be loaded")
		}
	})
}

func TestScanCmdChecksProxy(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(site.Close)

	// A plain HTTP endpoint answers the SOCKS5 greeting with a status line.
	httpProxy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { httpProxy.Close() })
	go func() {
		for {
			conn, err := httpProxy.Accept()
			if err != nil {
				return
			}
			greeting := make([]byte, 3)
			_, _ = io.ReadFull(conn, greeting)
			_, _ = io.WriteString(conn, "HTTP/1.1 400 Bad Request\r\n\r\n")
			conn.Close()
		}
	}()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closedAddr := ln.Addr().String()
	ln.Close()

	testCases := []struct {
		name  string
		proxy string
		want  error
	}{
		{"not a socks5 proxy", httpProxy.Addr().String(), transport.ErrProxyNotSOCKS5},
		{"nothing listening", closedAddr, transport.ErrProxyCannotConnect},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := executeCommand(t, "scan",
				"-c", emptyConfigFile(t),
				"--no-save",
				"--proxy", tc.proxy,
				site.URL,
			)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	t.Cleanup(func() {
		if n := hits.Load(); n != 0 {
			t.Errorf("site received %d requests, expected none", n)
		}
	})
}
