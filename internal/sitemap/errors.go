package sitemap

import (
	"errors"
	"fmt"
)

// ErrFetch is the sentinel matched by every *FetchError.
var ErrFetch = errors.New("sitemap fetch failed")

// FetchError reports that the sitemap document could not be retrieved.
// StatusCode is zero when no HTTP response was received, in which case Err
// holds the transport error.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sitemap.xml returned %d (%s)", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("sitemap.xml could not be fetched (%s): %v", e.URL, e.Err)
}

// Is makes errors.Is(err, ErrFetch) true for any *FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}
