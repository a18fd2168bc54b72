package sitemap

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// DefaultPath is the well-known sitemap location.
	DefaultPath = "/sitemap.xml"

	// defaultMaxBodySize caps how much of the document is read.
	defaultMaxBodySize = 10 * 1024 * 1024
)

// locPattern matches a <loc> element holding an absolute http(s) URL.
var locPattern = regexp.MustCompile(`<loc>(https?://[^<]+)</loc>`)

// ParseLocs returns the content of every <loc>http(s)://...</loc> element in
// body, in document order. Duplicates are preserved.
func ParseLocs(body []byte) []string {
	matches := locPattern.FindAllSubmatch(body, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, string(m[1]))
	}
	return urls
}

// Document is a fetched sitemap.
type Document struct {
	// URL is the address the document was requested from.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Body is the raw document.
	Body []byte

	// URLs are the extracted <loc> entries.
	URLs []string
}

// Digest returns a hex SHA3-256 fingerprint of the body.
// Two runs with the same digest saw the same sitemap.
func (d *Document) Digest() string {
	sum := sha3.Sum256(d.Body)
	return hex.EncodeToString(sum[:])
}

// HasURLSet reports whether the document looks like a <urlset> sitemap.
func (d *Document) HasURLSet() bool {
	return bytes.Contains(d.Body, []byte("<urlset")) && bytes.Contains(d.Body, []byte("<loc>"))
}

// Reader fetches and parses a site's sitemap.
type Reader struct {
	client      *http.Client
	sitemapURL  string
	userAgent   string
	maxBodySize int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithPath overrides the sitemap path (default "/sitemap.xml").
func WithPath(path string) Option {
	return func(r *Reader) {
		if path != "" {
			r.sitemapURL = joinPath(r.sitemapURL, path)
		}
	}
}

// WithUserAgent sets the User-Agent header for the sitemap request.
func WithUserAgent(ua string) Option {
	return func(r *Reader) {
		r.userAgent = ua
	}
}

// WithMaxBodySize caps the number of bytes read from the response.
func WithMaxBodySize(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxBodySize = n
		}
	}
}

// NewReader creates a Reader for the site at baseURL.
// A nil client uses http.DefaultClient.
func NewReader(client *http.Client, baseURL string, opts ...Option) (*Reader, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	root := u.Scheme + "://" + u.Host
	r := &Reader{
		client:      client,
		sitemapURL:  joinPath(root, DefaultPath),
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// joinPath replaces the path of base with path.
func joinPath(base, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	u.RawQuery = ""
	return u.String()
}

// URL returns the absolute sitemap address.
func (r *Reader) URL() string {
	return r.sitemapURL
}

// Fetch retrieves the sitemap document.
// A non-2xx status or transport failure returns a *FetchError.
func (r *Reader) Fetch(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.sitemapURL, nil)
	if err != nil {
		return nil, &FetchError{URL: r.sitemapURL, Err: err}
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: r.sitemapURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: r.sitemapURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: r.sitemapURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &Document{
		URL:        r.sitemapURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		URLs:       ParseLocs(body),
	}, nil
}

// URLs returns every sitemap entry in document order.
// A sitemap with no entries yields an empty slice and a nil error.
func (r *Reader) URLs(ctx context.Context) ([]string, error) {
	doc, err := r.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return doc.URLs, nil
}
