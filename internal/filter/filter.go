package filter

import (
	"fmt"
	"regexp"
)

// Rule is a single exclusion pattern with a human-readable reason.
type Rule struct {
	// Pattern is matched against the full absolute URL.
	Pattern *regexp.Regexp

	// Reason is reported when a URL is skipped because of this rule.
	Reason string
}

// NewRule compiles pattern into a Rule.
func NewRule(pattern, reason string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Reason: reason}, nil
}

// mustRule is used for the built-in rules only.
func mustRule(pattern, reason string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Reason: reason}
}

// hostPrefix anchors a host pattern at the start of the URL, after "//",
// or after a subdomain dot, so "x.com" does not match "dropbox.com".
const hostPrefix = `(^|//|\.)`

// DefaultRules returns the built-in exclusion rules.
// A fresh slice is returned on every call.
func DefaultRules() []Rule {
	return []Rule{
		mustRule(`^mailto:`, "mailto link"),
		mustRule(`^tel:`, "tel link"),
		mustRule(`^javascript:`, "javascript link"),
		mustRule(`#`, "fragment anchor"),
		mustRule(`linkedin\.com`, "linkedin blocks automated requests"),
		mustRule(hostPrefix+`(twitter|x)\.com([:/?]|$)`, "twitter/x blocks automated requests"),
		mustRule(`amazon\.com`, "amazon blocks automated requests"),
		mustRule(`reddit\.com/submit`, "share intent"),
		mustRule(`news\.ycombinator\.com/submitlink`, "share intent"),
		mustRule(`facebook\.com/sharer`, "share intent"),
		mustRule(`threads\.net/intent`, "share intent"),
		mustRule(hostPrefix+`wa\.me/`, "share intent"),
		mustRule(hostPrefix+`t\.co/`, "link shortener"),
	}
}

// CompileRules compiles extra ignore patterns taken from configuration.
func CompileRules(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		r, err := NewRule(p, "configured ignore pattern")
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Filter excludes URLs that match any of its rules.
// A Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	rules []Rule
}

// New creates a Filter from the given rules.
// The order of rules only affects which reason Match reports.
func New(rules ...Rule) *Filter {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Filter{rules: rs}
}

// NewDefault creates a Filter with DefaultRules followed by extra.
func NewDefault(extra ...Rule) *Filter {
	return New(append(DefaultRules(), extra...)...)
}

// ShouldCheck reports whether target should be fetched.
func (f *Filter) ShouldCheck(target string) bool {
	_, matched := f.Match(target)
	return !matched
}

// Match returns the first rule matching target.
func (f *Filter) Match(target string) (Rule, bool) {
	for _, r := range f.rules {
		if r.Pattern.MatchString(target) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the filter's rules.
func (f *Filter) Rules() []Rule {
	rs := make([]Rule, len(f.rules))
	copy(rs, f.rules)
	return rs
}
