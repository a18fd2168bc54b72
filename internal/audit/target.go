package audit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// maxBodySize limits how much of each audited response is read.
const maxBodySize = 2 * 1024 * 1024

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL *url.URL

	// StatusCode is the HTTP status.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the response body, truncated at maxBodySize.
	Body []byte
}

// Target is the site under audit.
type Target struct {
	base   *url.URL
	client *http.Client

	mu      sync.Mutex
	home    *Response
	homeErr error
}

// NewTarget creates a Target for siteURL. A nil client uses http.DefaultClient.
func NewTarget(client *http.Client, siteURL string) (*Target, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", siteURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Target{
		base:   &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		client: client,
	}, nil
}

// URL returns the absolute URL of path on the site.
func (t *Target) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return t.base.String()
	}
	return t.base.ResolveReference(ref).String()
}

// Get fetches path on the site. Non-2xx statuses are not errors.
func (t *Target) Get(ctx context.Context, path string) (*Response, error) {
	return t.fetch(ctx, t.URL(path))
}

// Home returns the site's home page, fetched once per Target.
func (t *Target) Home(ctx context.Context) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.home == nil && t.homeErr == nil {
		t.home, t.homeErr = t.fetch(ctx, t.base.String())
	}
	return t.home, t.homeErr
}

func (t *Target) fetch(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	return &Response{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
