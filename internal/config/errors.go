package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and allow callers to use
// errors.Is() for programmatic handling.
var (
	// ErrNoTarget is returned when neither an argument nor $SITE_URL names a site.
	ErrNoTarget = errors.New("no target specified: provide a site URL or set " + EnvSiteURL)

	// ErrInvalidTarget is returned when a target is not an absolute http(s) URL.
	ErrInvalidTarget = errors.New("invalid target: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when any timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidBudget is returned when a crawl budget is not positive.
	ErrInvalidBudget = errors.New("invalid budget: status, seed and link budgets must be positive")

	// ErrUnknownReportFormat is returned for a --format value that has no writer.
	ErrUnknownReportFormat = errors.New("unknown report format: use text, json, markdown or xlsx")

	// ErrReportFileRequired is returned when a binary format is written to stdout.
	ErrReportFileRequired = errors.New("xlsx reports require --output")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRateLimit is returned when the per-host rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")
)
