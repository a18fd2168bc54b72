// Package transport builds the HTTP client every scan component shares.
//
// The client injects the configured User-Agent, extra headers and session
// cookie into every request (redirects included), keeps cookies set by the
// site in a jar that respects the public suffix list, transparently decodes
// brotli and gzip response bodies, and can route all traffic through a
// SOCKS5 proxy.
//
// # Usage
//
//	client, err := transport.NewClient(transport.Options{
//		Timeout:   30 * time.Second,
//		UserAgent: "sitescan/1.0",
//	})
package transport
