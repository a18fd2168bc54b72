package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// Defaults applied by NewClient.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
)

// Options configures the HTTP client.
type Options struct {
	// Timeout is the overall per-request timeout of the client.
	// Callers may still apply shorter timeouts through the request context.
	Timeout time.Duration

	// UserAgent is set on requests that do not carry their own.
	UserAgent string

	// Cookie is a raw cookie string appended to every request.
	Cookie string

	// Headers are set on every request.
	Headers map[string]string

	// ProxyAddress routes traffic through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// InsecureSkipVerify disables TLS certificate verification,
	// for staging sites with self-signed certificates.
	InsecureSkipVerify bool

	// MaxRedirects limits how many redirects are followed.
	MaxRedirects int
}

// NewClient creates an HTTP client from opts.
//
// Design decision: We use custom RoundTrippers to inject headers and decode
// bodies rather than modifying each request. This ensures all requests
// (including redirects) include the configured values.
func NewClient(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Decoding is done by decodingTransport so brotli is covered too.
		DisableCompression: true,
	}
	if opts.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Opt-in for staging environments
		}
	}

	if opts.ProxyAddress != "" {
		if !isValidProxyAddress(opts.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		base.Proxy = nil
		base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	maxRedirects := opts.MaxRedirects
	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      &decodingTransport{base: base},
			userAgent: opts.UserAgent,
			cookie:    opts.Cookie,
			headers:   opts.Headers,
		},
		Timeout: opts.Timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// the user agent, custom headers and cookie into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.cookie != "" {
		// Append to existing Cookie header or set new one
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
