package sitemap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sitemapBody(urls ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, u := range urls {
		fmt.Fprintf(&sb, "  <url><loc>%s</loc><lastmod>2025-01-01</lastmod></url>\n", u)
	}
	sb.WriteString("</urlset>\n")
	return sb.String()
}

func newSitemapServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParseLocs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "document order",
			body:     sitemapBody("https://e.com/", "https://e.com/posts/a/", "http://e.com/b"),
			expected: []string{"https://e.com/", "https://e.com/posts/a/", "http://e.com/b"},
		},
		{
			name:     "duplicates preserved",
			body:     sitemapBody("https://e.com/a", "https://e.com/a"),
			expected: []string{"https://e.com/a", "https://e.com/a"},
		},
		{
			name:     "relative and non-http locs ignored",
			body:     "<urlset><url><loc>/relative</loc></url><url><loc>ftp://e.com/x</loc></url></urlset>",
			expected: []string{},
		},
		{
			name:     "empty urlset",
			body:     sitemapBody(),
			expected: []string{},
		},
		{
			name:     "not xml at all",
			body:     "hello <loc>https://e.com/x</loc> world",
			expected: []string{"https://e.com/x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ParseLocs([]byte(tc.body))
			if len(got) != len(tc.expected) {
				t.Fatalf("got %d urls %v, expected %d", len(got), got, len(tc.expected))
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("url[%d] = %q, expected %q", i, got[i], tc.expected[i])
				}
			}
		})
	}
}

func TestReaderURLs(t *testing.T) {
	t.Parallel()

	t.Run("six entries in order", func(t *testing.T) {
		t.Parallel()

		urls := []string{
			"https://e.com/",
			"https://e.com/posts/1/",
			"https://e.com/posts/2/",
			"https://e.com/tags/",
			"https://e.com/posts/3/",
			"https://e.com/about/",
		}
		server := newSitemapServer(t, http.StatusOK, sitemapBody(urls...))

		r, err := NewReader(server.Client(), server.URL)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		got, err := r.URLs(context.Background())
		if err != nil {
			t.Fatalf("URLs() error = %v", err)
		}
		if len(got) != 6 {
			t.Fatalf("got %d urls, expected 6", len(got))
		}
		for i := range urls {
			if got[i] != urls[i] {
				t.Errorf("url[%d] = %q, expected %q", i, got[i], urls[i])
			}
		}
	})

	t.Run("zero entries is not an error", func(t *testing.T) {
		t.Parallel()

		server := newSitemapServer(t, http.StatusOK, sitemapBody())
		r, err := NewReader(server.Client(), server.URL)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		got, err := r.URLs(context.Background())
		if err != nil {
			t.Fatalf("URLs() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("non-2xx returns FetchError", func(t *testing.T) {
		t.Parallel()

		server := newSitemapServer(t, http.StatusInternalServerError, "oops")
		r, err := NewReader(server.Client(), server.URL)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		_, err = r.URLs(context.Background())
		if !errors.Is(err, ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fe.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, expected 500", fe.StatusCode)
		}
		if !strings.Contains(err.Error(), "returned 500") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("transport failure returns FetchError", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		r, err := NewReader(nil, addr)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		_, err = r.URLs(context.Background())
		if !errors.Is(err, ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
		var fe *FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			t.Errorf("StatusCode = %d, expected 0", fe.StatusCode)
		}
	})
}

func TestReaderFetch(t *testing.T) {
	t.Parallel()

	body := sitemapBody("https://e.com/", "https://e.com/posts/a/")
	server := newSitemapServer(t, http.StatusOK, body)

	r, err := NewReader(server.Client(), server.URL+"/some/page/")
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if r.URL() != server.URL+"/sitemap.xml" {
		t.Errorf("URL() = %q", r.URL())
	}

	doc, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !doc.HasURLSet() {
		t.Error("expected HasURLSet() to be true")
	}
	if len(doc.Digest()) != 64 {
		t.Errorf("Digest() length = %d, expected 64", len(doc.Digest()))
	}

	other := &Document{Body: []byte(body + " ")}
	if other.Digest() == doc.Digest() {
		t.Error("expected different bodies to have different digests")
	}
}

func TestNewReader(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative URL", func(t *testing.T) {
		t.Parallel()
		if _, err := NewReader(nil, "/not/absolute"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("custom path", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(nil, "https://e.com", WithPath("sitemap_index.xml"))
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		if r.URL() != "https://e.com/sitemap_index.xml" {
			t.Errorf("URL() = %q", r.URL())
		}
	})
}
