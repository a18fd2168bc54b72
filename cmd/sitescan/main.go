// Package main provides the entry point for the sitescan CLI.
//
// sitescan is a post-deploy smoke test for static sites. It verifies a
// capped prefix of the sitemap, follows links from a few seed pages and
// audits security headers and exposed files.
//
// Usage:
//
//	sitescan scan https://example.com
//	SITE_URL=https://example.com sitescan scan
//
// See --help for all available options.
package main

// main is the entry point for sitescan.
func main() {
	Execute()
}
