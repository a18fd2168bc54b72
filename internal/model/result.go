package model

import (
	"fmt"
	"net/url"
	"strings"
)

// ResultKind classifies the outcome of checking a single URL.
//
// Design decision: We return a tagged result instead of an error because
// callers decide per mode whether a classification is a failure, a warning,
// or nothing at all. Inspecting error text for that decision is brittle.
type ResultKind int

const (
	// ResultOK means the URL answered with an acceptable status.
	ResultOK ResultKind = iota

	// ResultHTTPError means the URL answered with a client or server error status.
	ResultHTTPError

	// ResultNetworkError means no HTTP answer was received at all
	// (timeout, DNS failure, refused connection, TLS failure).
	ResultNetworkError

	// ResultSkipped means the URL was intentionally not fetched.
	ResultSkipped
)

// String returns a human-readable representation of the result kind.
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "OK"
	case ResultHTTPError:
		return "HTTP_ERROR"
	case ResultNetworkError:
		return "NETWORK_ERROR"
	case ResultSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON reports carry the name.
func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ResultKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "OK":
		*k = ResultOK
	case "HTTP_ERROR":
		*k = ResultHTTPError
	case "NETWORK_ERROR":
		*k = ResultNetworkError
	case "SKIPPED":
		*k = ResultSkipped
	default:
		return fmt.Errorf("unknown result kind %q", string(text))
	}
	return nil
}

// LinkCheckResult is the classified outcome of verifying one URL.
type LinkCheckResult struct {
	// URL is the checked address.
	URL string `json:"url"`

	// Kind is the classification.
	Kind ResultKind `json:"kind"`

	// StatusCode is the final HTTP status, 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Message holds the transport error text for ResultNetworkError.
	Message string `json:"message,omitempty"`

	// Reason explains a ResultSkipped, or an exemption applied to a ResultOK.
	Reason string `json:"reason,omitempty"`

	// Method is the HTTP method of the request that produced StatusCode.
	Method string `json:"method,omitempty"`

	// External is true when the URL does not belong to the site under test.
	External bool `json:"external"`
}

// OKResult returns a ResultOK classification.
func OKResult(target string, status int) LinkCheckResult {
	return LinkCheckResult{URL: target, Kind: ResultOK, StatusCode: status}
}

// HTTPErrorResult returns a ResultHTTPError classification.
func HTTPErrorResult(target string, status int) LinkCheckResult {
	return LinkCheckResult{URL: target, Kind: ResultHTTPError, StatusCode: status}
}

// NetworkErrorResult returns a ResultNetworkError classification.
func NetworkErrorResult(target, message string) LinkCheckResult {
	return LinkCheckResult{URL: target, Kind: ResultNetworkError, Message: message}
}

// SkippedResult returns a ResultSkipped classification.
func SkippedResult(target, reason string) LinkCheckResult {
	return LinkCheckResult{URL: target, Kind: ResultSkipped, Reason: reason}
}

// OK reports whether the result is ResultOK.
func (r LinkCheckResult) OK() bool {
	return r.Kind == ResultOK
}

// String returns a one-line description of the result.
func (r LinkCheckResult) String() string {
	switch r.Kind {
	case ResultOK:
		return fmt.Sprintf("OK %d %s", r.StatusCode, r.URL)
	case ResultHTTPError:
		return fmt.Sprintf("HTTP %d %s", r.StatusCode, r.URL)
	case ResultNetworkError:
		return fmt.Sprintf("NETWORK %s: %s", r.URL, r.Message)
	case ResultSkipped:
		return fmt.Sprintf("SKIPPED %s (%s)", r.URL, r.Reason)
	default:
		return r.URL
	}
}

// IsExternal reports whether target lives outside siteHost.
// Hosts are compared case-insensitively without the port.
// Unparseable or host-less targets count as external.
func IsExternal(target, siteHost string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return true
	}
	return !strings.EqualFold(u.Hostname(), hostOnly(siteHost))
}

// hostOnly strips a port from a host[:port] string.
func hostOnly(host string) string {
	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return host
}
