package model

// Severity represents how serious an audit finding is.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct impact.
	// Examples: the CSP value in use, the number of sitemap URLs.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues worth knowing about.
	// Examples: a versioned Server header controlled by the CDN.
	SeverityLow

	// SeverityMedium indicates issues that should be fixed but do not fail a check.
	// Examples: missing Content-Security-Policy, long-lived caching of 404 pages.
	SeverityMedium

	// SeverityHigh indicates a failed check.
	// Examples: missing HSTS, X-Powered-By version disclosure, broken critical asset.
	SeverityHigh

	// SeverityCritical indicates a failed check with direct exposure.
	// Examples: a readable .git/config or terraform state file.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Failing reports whether a finding of this severity fails its check.
func (s Severity) Failing() bool {
	return s >= SeverityHigh
}

// Finding is one observation made by an audit check.
type Finding struct {
	// Check is the name of the audit check that produced the finding.
	Check string `json:"check"`

	// Title is a short summary.
	Title string `json:"title"`

	// Description explains the finding.
	Description string `json:"description,omitempty"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is Severity.String(), stored for JSON readers.
	SeverityText string `json:"severity_text"`

	// Value is the observed value (header content, status code, ...).
	Value string `json:"value,omitempty"`

	// Location is the URL the finding applies to.
	Location string `json:"location,omitempty"`
}

// NewFinding creates a finding with SeverityText filled in.
func NewFinding(check, title string, severity Severity, value, location string) Finding {
	return Finding{
		Check:        check,
		Title:        title,
		Severity:     severity,
		SeverityText: severity.String(),
		Value:        value,
		Location:     location,
	}
}

// WithDescription returns a copy of the finding with a description attached.
func (f Finding) WithDescription(description string) Finding {
	f.Description = description
	return f
}
