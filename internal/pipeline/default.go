package pipeline

import (
	"fmt"
	"net/http"

	"github.com/nao1215/sitescan/internal/audit"
	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/crawler"
	"github.com/nao1215/sitescan/internal/filter"
	"github.com/nao1215/sitescan/internal/sitemap"
	"github.com/nao1215/sitescan/internal/transport"
	"github.com/nao1215/sitescan/internal/verify"
)

// DefaultPipeline creates the pipeline of one site run from cfg.
//
// Every run gets its own HTTP client, sitemap cache and spiders, so no state
// is shared with concurrent runs. Status mode and deep-crawl mode use
// separate verifiers because their per-request timeouts differ.
func DefaultPipeline(cfg *config.Config, site string, pipelineOpts ...Option) (*Pipeline, error) {
	p := New(append([]Option{WithContinueOnError(true)}, pipelineOpts...)...)
	settings := cfg.ForSite(site)

	client, err := transport.NewClient(transport.Options{
		Timeout:            cfg.NavigationTimeout,
		UserAgent:          cfg.UserAgent,
		Cookie:             settings.Cookie,
		Headers:            settings.Headers,
		ProxyAddress:       cfg.ProxyAddress,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MaxRedirects:       config.DefaultMaxRedirects,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	steps, err := buildSteps(cfg, settings, client, p)
	if err != nil {
		return nil, err
	}
	p.AddSteps(steps...)
	return p, nil
}

func buildSteps(cfg *config.Config, settings config.SiteSettings, client *http.Client, p *Pipeline) ([]Step, error) {
	reader, err := sitemap.NewReader(client, settings.Site,
		sitemap.WithUserAgent(cfg.UserAgent),
		sitemap.WithMaxBodySize(cfg.MaxBodySize),
	)
	if err != nil {
		return nil, err
	}
	cache := NewSitemapCache(reader)

	limiter := verify.NewHostLimiter(cfg.RateLimit, 1)
	newVerifier := func(timeoutOpt verify.Option) (*verify.Verifier, error) {
		return verify.New(client, settings.Site,
			timeoutOpt,
			verify.WithUserAgent(cfg.UserAgent),
			verify.WithLimiter(limiter),
			verify.WithLogger(p.logger),
		)
	}
	statusVerifier, err := newVerifier(verify.WithTimeout(cfg.StatusTimeout))
	if err != nil {
		return nil, err
	}
	linkVerifier, err := newVerifier(verify.WithTimeout(cfg.LinkTimeout))
	if err != nil {
		return nil, err
	}

	rules, err := filter.CompileRules(settings.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	spiderOpts := []crawler.SpiderOption{
		crawler.WithStatusBudget(settings.StatusBudget),
		crawler.WithSeedBudget(settings.SeedBudget),
		crawler.WithLinkBudget(settings.LinkBudget),
		crawler.WithPostPattern(settings.PostPattern),
		crawler.WithFilter(filter.NewDefault(rules...)),
		crawler.WithLogger(p.logger),
	}

	links := newLinkSource(cfg, client, p)
	statusSpider, err := crawler.NewSpider(cache, links, statusVerifier, spiderOpts...)
	if err != nil {
		return nil, err
	}
	deepSpider, err := crawler.NewSpider(cache, links, linkVerifier, spiderOpts...)
	if err != nil {
		return nil, err
	}

	steps := []Step{
		NewSitemapStep(cache),
		NewStatusStep(statusSpider),
	}
	if !cfg.SkipDeepCrawl {
		steps = append(steps, NewDeepCrawlStep(deepSpider))
	}
	if cfg.SkipAudit {
		return steps, nil
	}

	target, err := audit.NewTarget(client, settings.Site)
	if err != nil {
		return nil, err
	}
	auditor := audit.NewAuditor(p.logger, audit.DefaultChecks(auditOptions(settings))...)
	for _, c := range auditor.Checks() {
		steps = append(steps, NewAuditStep(auditor, c, target))
	}
	return steps, nil
}

// newLinkSource returns a headless Chrome source when rendering is enabled,
// and a plain HTTP source otherwise.
func newLinkSource(cfg *config.Config, client *http.Client, p *Pipeline) crawler.LinkSource {
	if cfg.Render {
		return crawler.NewChromeSource(crawler.ChromeOptions{
			Timeout:   cfg.NavigationTimeout,
			UserAgent: cfg.UserAgent,
			ExecPath:  cfg.ChromePath,
		}, p.logger)
	}
	return crawler.NewHTTPSource(client,
		crawler.WithNavigationTimeout(cfg.NavigationTimeout),
		crawler.WithSourceUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)
}

func auditOptions(settings config.SiteSettings) audit.Options {
	opts := audit.DefaultOptions()
	if settings.MinSitemapURLs > 0 {
		opts.MinSitemapURLs = settings.MinSitemapURLs
	}
	if len(settings.CriticalPaths) > 0 {
		opts.CriticalPaths = settings.CriticalPaths
	}
	if len(settings.SensitivePaths) > 0 {
		opts.SensitivePaths = settings.SensitivePaths
	}
	return opts
}
