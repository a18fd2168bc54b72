// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// SiteScan sends cookies and custom headers to password-protected staging
// sites, and page URLs sometimes carry access tokens in their query string.
// The SecureHandler masks these before they reach the log output:
//   - attributes whose key names a credential (cookie, authorization, token)
//   - values that look like credentials (Bearer or Basic auth, JWTs, keys)
//   - passwords in URL userinfo and sensitive URL query parameters
//
// Even in verbose mode, sensitive values are masked so that logs can be
// attached to CI output and bug reports.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("link unreachable",
//	    "url", "https://example.com/feed?token=abc", // token=***REDACTED***
//	    "cookie", "gate=xyz",                       // ***REDACTED***
//	)
package log
