package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitescan/internal/filter"
	"github.com/nao1215/sitescan/internal/model"
)

// Default budgets.
const (
	DefaultStatusBudget = 30
	DefaultSeedBudget   = 10
	DefaultLinkBudget   = 50
	DefaultPostPattern  = "/posts/"
)

// SitemapSource lists the site's published URLs in document order.
type SitemapSource interface {
	URLs(ctx context.Context) ([]string, error)
}

// Verifier classifies a single URL.
type Verifier interface {
	Verify(ctx context.Context, target string) model.LinkCheckResult
}

// Spider runs the bounded status and deep-crawl modes against one site.
//
// Design decision: A Spider holds no per-run state. Each DeepCrawl call
// creates its own VisitedSet and FailureReport, so one Spider can serve
// the status step and the deep-crawl step of a run, and a retried run
// starts from an empty visited set.
type Spider struct {
	sitemap  SitemapSource
	links    LinkSource
	verifier Verifier

	// statusBudget caps how many sitemap URLs CheckStatus verifies.
	statusBudget int

	// seedBudget caps how many pages DeepCrawl extracts links from.
	seedBudget int

	// linkBudget caps how many new links are verified per seed page.
	linkBudget int

	// postPattern selects post pages as deep-crawl seeds.
	postPattern string

	filter *filter.Filter
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithStatusBudget sets how many sitemap URLs CheckStatus verifies.
func WithStatusBudget(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.statusBudget = n
		}
	}
}

// WithSeedBudget sets how many pages DeepCrawl extracts links from,
// the home page included.
func WithSeedBudget(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.seedBudget = n
		}
	}
}

// WithLinkBudget sets how many links are verified per seed page.
func WithLinkBudget(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.linkBudget = n
		}
	}
}

// WithPostPattern sets the substring that marks post pages.
func WithPostPattern(pattern string) SpiderOption {
	return func(s *Spider) {
		s.postPattern = pattern
	}
}

// WithFilter replaces the default URL filter.
func WithFilter(f *filter.Filter) SpiderOption {
	return func(s *Spider) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpider creates a Spider from its collaborators.
func NewSpider(sitemap SitemapSource, links LinkSource, verifier Verifier, opts ...SpiderOption) (*Spider, error) {
	if sitemap == nil || links == nil || verifier == nil {
		return nil, ErrNilCollaborator
	}

	s := &Spider{
		sitemap:      sitemap,
		links:        links,
		verifier:     verifier,
		statusBudget: DefaultStatusBudget,
		seedBudget:   DefaultSeedBudget,
		linkBudget:   DefaultLinkBudget,
		postPattern:  DefaultPostPattern,
		filter:       filter.NewDefault(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckStatus verifies the first statusBudget sitemap URLs.
//
// Every HTTP error and every network error is a failure, since the site's
// own pages must be reachable. All URLs are checked before the failures are
// returned together as a *model.AggregateError. The returned ModeResult is
// non-nil whenever the sitemap was read, even if some URLs failed.
//
// A sitemap fetch error is returned as is, before any URL is checked.
// If ctx is done mid-run the partial result is discarded.
func (s *Spider) CheckStatus(ctx context.Context) (*model.ModeResult, error) {
	urls, err := s.sitemap.URLs(ctx)
	if err != nil {
		return nil, err
	}

	result := model.NewModeResult(model.ModeStatus)
	result.Candidates = len(urls)
	report := model.NewFailureReport(model.ModeStatus)

	targets := urls[:min(len(urls), s.statusBudget)]
	s.logger.Debug("status check started", "sitemap_urls", len(urls), "checking", len(targets))

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := s.verifier.Verify(ctx, target)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Checked++
		result.Results = append(result.Results, r)

		switch r.Kind {
		case model.ResultHTTPError:
			report.Add(model.Failure{URL: target, StatusCode: r.StatusCode})
		case model.ResultNetworkError:
			report.Add(model.Failure{URL: target, Message: r.Message})
		case model.ResultOK, model.ResultSkipped:
		}
	}

	result.Failures = report.Failures()
	return result, report.Err()
}

// DeepCrawl verifies the outbound links of the seed pages.
//
// For each seed, links are filtered, links already attempted in this run are
// dropped, and the remainder is capped at linkBudget. HTTP errors are failures
// attributed to the seed page. Network errors are logged as warnings and never
// fail the run. A seed page that cannot be loaded is recorded as a page error
// and the crawl moves on.
//
// A sitemap fetch error is returned as is. If ctx is done mid-run the partial
// result is discarded.
func (s *Spider) DeepCrawl(ctx context.Context) (*model.ModeResult, error) {
	urls, err := s.sitemap.URLs(ctx)
	if err != nil {
		return nil, err
	}

	seeds := SelectSeeds(urls, s.seedBudget, s.postPattern)
	result := model.NewModeResult(model.ModeDeepCrawl)
	result.Candidates = len(seeds)
	report := model.NewFailureReport(model.ModeDeepCrawl)
	visited := NewVisitedSet()

	s.logger.Debug("deep crawl started", "sitemap_urls", len(urls), "seeds", len(seeds))

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := s.links.Links(ctx, seed)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("could not load seed page", "url", seed, "error", err)
			report.Add(model.Failure{URL: seed, Message: err.Error(), PageError: true})
			continue
		}

		selected, skipped := s.selectLinks(found, visited)
		result.Results = append(result.Results, skipped...)

		for _, link := range selected {
			if !visited.Add(link) {
				continue
			}

			r := s.verifier.Verify(ctx, link)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result.Checked++
			result.Results = append(result.Results, r)

			switch r.Kind {
			case model.ResultHTTPError:
				report.Add(model.Failure{URL: link, Source: seed, StatusCode: r.StatusCode})
			case model.ResultNetworkError:
				s.logger.Warn("could not reach link", "url", link, "page", seed, "error", r.Message)
				result.Warnings = append(result.Warnings, model.Warning{URL: link, Source: seed, Message: r.Message})
			case model.ResultOK, model.ResultSkipped:
			}
		}
	}

	result.Failures = report.Failures()
	return result, report.Err()
}

// selectLinks drops links already visited, applies the filter, and caps the
// rest at the per-page budget. Order is preserved. Filtered links are marked
// visited and returned as skipped results, once per run.
func (s *Spider) selectLinks(links []string, visited *VisitedSet) ([]string, []model.LinkCheckResult) {
	selected := make([]string, 0, min(len(links), s.linkBudget))
	var skipped []model.LinkCheckResult
	for _, link := range links {
		if visited.Contains(link) {
			continue
		}
		if rule, skip := s.filter.Match(link); skip {
			s.logger.Debug("skipping link", "url", link, "reason", rule.Reason)
			visited.Add(link)
			skipped = append(skipped, model.SkippedResult(link, rule.Reason))
			continue
		}
		selected = append(selected, link)
	}
	if len(selected) > s.linkBudget {
		selected = selected[:s.linkBudget]
	}
	return selected, skipped
}
