// Package audit runs site-level health and security checks.
//
// Each Check inspects one concern of the deployed site (sitemap and
// robots.txt validity, reachability of critical assets, the search index,
// HTTP security headers, exposure of sensitive files, mixed content) and
// returns model.Finding values. A finding of severity HIGH or above fails
// its check; lower severities are reported as warnings or information.
//
// The Auditor runs every configured Check against a Target, which wraps the
// shared HTTP client and caches the home page response so the header checks
// issue a single request.
package audit
