package transport

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised when the request does not set its own.
const acceptEncoding = "br, gzip"

// decodingTransport advertises brotli and gzip and decodes the response body.
// Static hosts and CDNs commonly serve brotli, which net/http does not
// decode on its own.
type decodingTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if req.Method == http.MethodHead || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				resp.Body.Close()
				return nil, err
			}
			// An empty body cannot carry a gzip header.
			resp.Body.Close()
			resp.Body = http.NoBody
		} else {
			resp.Body = &decodedBody{Reader: zr, raw: resp.Body}
		}
	default:
		return resp, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodedBody reads decoded bytes and closes the raw body.
type decodedBody struct {
	io.Reader
	raw io.ReadCloser
}

// Close closes the underlying response body.
func (b *decodedBody) Close() error {
	return b.raw.Close()
}
