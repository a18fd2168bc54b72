package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LinkSource returns the outbound anchors of a fully loaded page.
type LinkSource interface {
	Links(ctx context.Context, pageURL string) ([]string, error)
}

// HTTPSource loads pages with a plain GET request and parses the static HTML.
type HTTPSource struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithNavigationTimeout bounds the time spent loading one page.
func WithNavigationTimeout(d time.Duration) HTTPSourceOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSourceUserAgent sets the User-Agent header.
func WithSourceUserAgent(ua string) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// WithMaxBodySize limits how much of a page is read.
func WithMaxBodySize(size int64) HTTPSourceOption {
	return func(s *HTTPSource) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// NewHTTPSource creates an HTTPSource. A nil client uses http.DefaultClient.
func NewHTTPSource(client *http.Client, opts ...HTTPSourceOption) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &HTTPSource{
		client:      client,
		timeout:     30 * time.Second,
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Links fetches pageURL and extracts its anchors.
// Relative links resolve against the final URL after redirects.
func (s *HTTPSource) Links(ctx context.Context, pageURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: HTTP %d", ErrPageStatus, resp.StatusCode)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return ExtractLinks(io.LimitReader(resp.Body, s.maxBodySize), resp.Header.Get("Content-Type"), finalURL)
}
