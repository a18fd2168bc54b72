package config

import (
	"maps"
	"net/url"
	"strings"
)

// SiteConfig holds site-specific configuration for a single site.
// Zero values mean "not set" and fall back to the defaults section or the
// global configuration.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to the site, for
	// example to pass a staging password gate.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are extra regular expressions for links that are never
	// verified, added to the built-in filter rules.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// StatusBudget overrides the global status budget.
	StatusBudget int `yaml:"statusBudget,omitempty"`

	// SeedBudget overrides the global seed budget.
	SeedBudget int `yaml:"seedBudget,omitempty"`

	// LinkBudget overrides the global link budget.
	LinkBudget int `yaml:"linkBudget,omitempty"`

	// PostPattern overrides the substring that marks post pages.
	PostPattern string `yaml:"postPattern,omitempty"`

	// CriticalPaths replaces the paths that must answer 200.
	CriticalPaths []string `yaml:"criticalPaths,omitempty"`

	// SensitivePaths replaces the paths probed for exposed files.
	SensitivePaths []string `yaml:"sensitivePaths,omitempty"`

	// MinSitemapURLs overrides the number of entries the sitemap must exceed.
	MinSitemapURLs int `yaml:"minSitemapURLs,omitempty"`
}

// File represents the structure of the .sitescan configuration file.
type File struct {
	// Sites maps a site URL or host name to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for site, merged over Defaults.
// The site is looked up by its exact URL first and then by host name.
func (cf *File) GetSiteConfig(site string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	sc, ok := cf.lookup(site)
	if !ok {
		return result
	}

	if sc.Cookie != "" {
		result.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(sc.Headers))
		}
		maps.Copy(result.Headers, sc.Headers)
	}
	if len(sc.IgnorePatterns) > 0 {
		result.IgnorePatterns = append(append([]string{}, result.IgnorePatterns...), sc.IgnorePatterns...)
	}
	if sc.StatusBudget != 0 {
		result.StatusBudget = sc.StatusBudget
	}
	if sc.SeedBudget != 0 {
		result.SeedBudget = sc.SeedBudget
	}
	if sc.LinkBudget != 0 {
		result.LinkBudget = sc.LinkBudget
	}
	if sc.PostPattern != "" {
		result.PostPattern = sc.PostPattern
	}
	if len(sc.CriticalPaths) > 0 {
		result.CriticalPaths = sc.CriticalPaths
	}
	if len(sc.SensitivePaths) > 0 {
		result.SensitivePaths = sc.SensitivePaths
	}
	if sc.MinSitemapURLs != 0 {
		result.MinSitemapURLs = sc.MinSitemapURLs
	}
	return result
}

func (cf *File) lookup(site string) (SiteConfig, bool) {
	if sc, ok := cf.Sites[site]; ok {
		return sc, true
	}
	if sc, ok := cf.Sites[strings.TrimSuffix(site, "/")]; ok {
		return sc, true
	}
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return SiteConfig{}, false
	}
	sc, ok := cf.Sites[u.Host]
	return sc, ok
}

// SiteSettings is the effective configuration of one site run.
type SiteSettings struct {
	Site           string
	Cookie         string
	Headers        map[string]string
	IgnorePatterns []string
	StatusBudget   int
	SeedBudget     int
	LinkBudget     int
	PostPattern    string
	CriticalPaths  []string
	SensitivePaths []string
	MinSitemapURLs int
}

// ForSite merges the global configuration with the file's overrides for site.
// Empty CriticalPaths and SensitivePaths mean the audit defaults apply.
func (c *Config) ForSite(site string) SiteSettings {
	s := SiteSettings{
		Site:           site,
		StatusBudget:   c.StatusBudget,
		SeedBudget:     c.SeedBudget,
		LinkBudget:     c.LinkBudget,
		PostPattern:    c.PostPattern,
		MinSitemapURLs: DefaultMinSitemapURLs,
	}
	if c.SiteConfigs == nil {
		return s
	}

	sc := c.SiteConfigs.GetSiteConfig(site)
	s.Cookie = sc.Cookie
	s.Headers = sc.Headers
	s.IgnorePatterns = sc.IgnorePatterns
	s.CriticalPaths = sc.CriticalPaths
	s.SensitivePaths = sc.SensitivePaths
	if sc.StatusBudget > 0 {
		s.StatusBudget = sc.StatusBudget
	}
	if sc.SeedBudget > 0 {
		s.SeedBudget = sc.SeedBudget
	}
	if sc.LinkBudget > 0 {
		s.LinkBudget = sc.LinkBudget
	}
	if sc.PostPattern != "" {
		s.PostPattern = sc.PostPattern
	}
	if sc.MinSitemapURLs > 0 {
		s.MinSitemapURLs = sc.MinSitemapURLs
	}
	return s
}
