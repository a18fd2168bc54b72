package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultStatusBudget is how many sitemap URLs status mode verifies.
	DefaultStatusBudget = 30

	// DefaultSeedBudget is how many pages deep-crawl mode extracts links from,
	// the home page included.
	DefaultSeedBudget = 10

	// DefaultLinkBudget is how many new links are verified per seed page.
	DefaultLinkBudget = 50

	// DefaultPostPattern marks post pages in the sitemap.
	DefaultPostPattern = "/posts/"

	// DefaultStatusTimeout bounds each request made by status mode.
	DefaultStatusTimeout = 15 * time.Second

	// DefaultLinkTimeout bounds each link verification in deep-crawl mode.
	// External hosts are slow more often than broken, so this is shorter
	// than the status timeout and a timeout there is only a warning.
	DefaultLinkTimeout = 12 * time.Second

	// DefaultNavigationTimeout bounds fetching a seed page for link extraction.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultRunTimeout bounds one complete site run.
	DefaultRunTimeout = 10 * time.Minute

	// DefaultBatchSize is the number of sites scanned concurrently.
	DefaultBatchSize = 4

	// DefaultMinSitemapURLs is the number of sitemap entries a healthy site exceeds.
	DefaultMinSitemapURLs = 5

	// DefaultMaxRedirects is the redirect limit of the HTTP client.
	DefaultMaxRedirects = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "sitescan"

	// DefaultUserAgent identifies SiteScan in HTTP requests.
	DefaultUserAgent = "sitescan/1.0 (+https://github.com/nao1215/sitescan)"

	// DefaultMaxBodySize limits the response body read from a page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// EnvSiteURL names the environment variable used when no target is given.
	EnvSiteURL = "SITE_URL"
)

// Report formats accepted by --format.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatXLSX     = "xlsx"
)

// Config holds all configuration options for SiteScan.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed down explicitly rather than kept in global state.
//
// Design decision: We keep a single flat struct, as the option count is
// manageable. Per-site overrides live in SiteConfigs and are merged by
// ForSite.
type Config struct {
	// Targets is the list of site base URLs to scan.
	Targets []string

	// StatusBudget caps the sitemap URLs verified by status mode.
	StatusBudget int

	// SeedBudget caps the pages deep-crawl mode extracts links from.
	SeedBudget int

	// LinkBudget caps the links verified per seed page.
	LinkBudget int

	// PostPattern marks post pages used as deep-crawl seeds.
	PostPattern string

	// StatusTimeout bounds each status mode request.
	StatusTimeout time.Duration

	// LinkTimeout bounds each deep-crawl link verification.
	LinkTimeout time.Duration

	// NavigationTimeout bounds fetching or rendering one seed page.
	NavigationTimeout time.Duration

	// RunTimeout bounds one complete site run. When it expires the run is
	// aborted and partial crawl results are discarded.
	RunTimeout time.Duration

	// BatchSize is the number of sites scanned concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// InsecureSkipVerify disables TLS certificate verification, for staging
	// sites with self-signed certificates.
	InsecureSkipVerify bool

	// RateLimit is the maximum requests per second sent to one host.
	// Zero disables rate limiting.
	RateLimit float64

	// Render extracts deep-crawl links from a headless Chrome rendering
	// instead of the served HTML.
	Render bool

	// ChromePath overrides the Chrome executable used when Render is set.
	ChromePath string

	// SkipDeepCrawl disables deep-crawl mode.
	SkipDeepCrawl bool

	// SkipAudit disables the configuration and security audit.
	SkipAudit bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// Format is the report format: text, json, markdown or xlsx.
	Format string

	// ReportFile is the output file path for the report. Empty means stdout.
	ReportFile string

	// ConfigFilePath is an explicit path to the configuration file.
	ConfigFilePath string

	// SiteConfigs holds the configuration file contents, if one was loaded.
	SiteConfigs *File

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores each run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		StatusBudget:      DefaultStatusBudget,
		SeedBudget:        DefaultSeedBudget,
		LinkBudget:        DefaultLinkBudget,
		PostPattern:       DefaultPostPattern,
		StatusTimeout:     DefaultStatusTimeout,
		LinkTimeout:       DefaultLinkTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		RunTimeout:        DefaultRunTimeout,
		BatchSize:         DefaultBatchSize,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		Format:            FormatText,
	}
}

// XDGDataDir returns the XDG data directory for SiteScan.
// On Linux: ~/.local/share/sitescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for SiteScan.
// On Linux: ~/.config/sitescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
//
// Design decision: We validate once after flag parsing so that mistakes
// fail fast with a clear message, before any request is sent.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, t := range c.Targets {
		if !IsSiteURL(t) {
			return ErrInvalidTarget
		}
	}

	if c.StatusTimeout <= 0 || c.LinkTimeout <= 0 || c.NavigationTimeout <= 0 || c.RunTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.StatusBudget <= 0 || c.SeedBudget <= 0 || c.LinkBudget <= 0 {
		return ErrInvalidBudget
	}

	switch c.Format {
	case FormatText, FormatJSON, FormatMarkdown:
	case FormatXLSX:
		if c.ReportFile == "" {
			return ErrReportFileRequired
		}
	default:
		return ErrUnknownReportFormat
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// IsSiteURL reports whether s is an absolute http or https URL with a host.
func IsSiteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
