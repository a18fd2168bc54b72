package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// DefaultTimeout bounds each individual request.
const DefaultTimeout = 12 * time.Second

// drainLimit is how much of a GET body is discarded before closing,
// so the connection can be reused.
const drainLimit = 64 * 1024

// ErrInvalidSiteURL is returned by New when the site URL has no host.
var ErrInvalidSiteURL = errors.New("site URL must be absolute")

// Verifier checks URLs with HEAD and a GET fallback.
type Verifier struct {
	client    *http.Client
	siteHost  string
	timeout   time.Duration
	userAgent string
	limiter   *HostLimiter
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(v *Verifier) {
		v.userAgent = ua
	}
}

// WithLimiter sets a per-host rate limiter.
func WithLimiter(l *HostLimiter) Option {
	return func(v *Verifier) {
		v.limiter = l
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Verifier for the site at siteURL.
// A nil client uses http.DefaultClient.
func New(client *http.Client, siteURL string, opts ...Option) (*Verifier, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSiteURL, siteURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	v := &Verifier{
		client:   client,
		siteHost: u.Host,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// IsExternal reports whether target is outside the site under test.
func (v *Verifier) IsExternal(target string) bool {
	return model.IsExternal(target, v.siteHost)
}

// Verify classifies target. It never returns an error: transport failures
// become model.ResultNetworkError.
func (v *Verifier) Verify(ctx context.Context, target string) model.LinkCheckResult {
	external := v.IsExternal(target)

	if u, err := url.Parse(target); err == nil {
		if err := v.limiter.Wait(ctx, u.Host); err != nil {
			return v.done(model.NetworkErrorResult(target, err.Error()), external)
		}
	}

	method := http.MethodHead
	status, err := v.fetch(ctx, method, target)
	if err == nil && status == http.StatusMethodNotAllowed {
		method = http.MethodGet
		status, err = v.fetch(ctx, method, target)
	}
	if err != nil {
		r := model.NetworkErrorResult(target, err.Error())
		r.Method = method
		return v.done(r, external)
	}

	r := classify(target, status, external)
	r.Method = method
	return v.done(r, external)
}

// done stamps the external flag and logs the classification.
func (v *Verifier) done(r model.LinkCheckResult, external bool) model.LinkCheckResult {
	r.External = external
	v.logger.Debug("verified link",
		"url", r.URL,
		"kind", r.Kind.String(),
		"status", r.StatusCode,
		"method", r.Method,
		"external", external,
	)
	return r
}

// classify maps a final status code to a result.
func classify(target string, status int, external bool) model.LinkCheckResult {
	switch {
	case status < http.StatusBadRequest:
		return model.OKResult(target, status)
	case status == http.StatusTooManyRequests:
		r := model.OKResult(target, status)
		r.Reason = "rate limited"
		return r
	case status == http.StatusMethodNotAllowed && external:
		r := model.OKResult(target, status)
		r.Reason = "external host rejects HEAD and GET"
		return r
	default:
		return model.HTTPErrorResult(target, status)
	}
}

// fetch performs one request and returns its final status code.
func (v *Verifier) fetch(ctx context.Context, method, target string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	return resp.StatusCode, nil
}
