// Package verify classifies whether a URL is reachable.
//
// Verify issues a HEAD request with a bounded timeout and falls back to a
// single GET when the server answers 405 Method Not Allowed. The outcome is a
// model.LinkCheckResult rather than an error, so each crawl mode can decide
// whether a classification is a failure, a warning, or neither.
//
// Classification rules:
//
//	status < 400                 OK
//	429 Too Many Requests        OK (the origin is up, only throttling us)
//	405 on an external host      OK (many third parties reject HEAD and GET from bots)
//	any other status >= 400      HTTPError
//	no response                  NetworkError
//
// There are no retries and no backoff.
package verify
