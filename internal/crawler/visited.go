package crawler

import (
	"net/url"

	"github.com/PuerkitoBio/purell"
)

// normalizationFlags are the purell rules applied before visited lookups.
// Only transformations that never change which resource is addressed are
// used, plus fragment removal.
const normalizationFlags = purell.FlagsSafe | purell.FlagRemoveFragment

// VisitedSet records the URLs attempted during one deep crawl.
// It only grows. A VisitedSet belongs to a single run and is not safe for
// concurrent use.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add records target and reports whether it was not already present.
func (v *VisitedSet) Add(target string) bool {
	key := normalizeURL(target)
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether target was already recorded.
func (v *VisitedSet) Contains(target string) bool {
	_, ok := v.seen[normalizeURL(target)]
	return ok
}

// Len returns the number of distinct URLs recorded.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}

// normalizeURL canonicalizes target for deduplication.
// An empty path and "/" are treated as the same URL.
func normalizeURL(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	if u.Path == "" && u.Opaque == "" && u.Host != "" {
		u.Path = "/"
	}
	return purell.NormalizeURL(u, normalizationFlags)
}
