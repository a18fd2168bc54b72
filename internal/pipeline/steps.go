package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/nao1215/sitescan/internal/audit"
	"github.com/nao1215/sitescan/internal/crawler"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/sitemap"
)

// Check names of the crawl steps. Audit steps use the audit check's name.
const (
	StepSitemapFetch  = "sitemap-fetch"
	StepSitemapStatus = "sitemap-status"
	StepDeepCrawl     = "deep-crawl"
)

// SitemapFetcher fetches the sitemap document.
type SitemapFetcher interface {
	Fetch(ctx context.Context) (*sitemap.Document, error)
}

// SitemapCache fetches the sitemap once per run and shares the document
// between the sitemap step and both crawl modes.
//
// Design decision: Status mode and deep-crawl mode each read the sitemap.
// Caching keeps them on the same snapshot, so a sitemap deployed mid-run
// cannot make the two modes disagree. A failed fetch is not cached.
type SitemapCache struct {
	fetcher SitemapFetcher

	mu  sync.Mutex
	doc *sitemap.Document
}

// NewSitemapCache wraps fetcher.
func NewSitemapCache(fetcher SitemapFetcher) *SitemapCache {
	return &SitemapCache{fetcher: fetcher}
}

// Fetch returns the cached document, fetching it on first use.
func (c *SitemapCache) Fetch(ctx context.Context) (*sitemap.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc != nil {
		return c.doc, nil
	}
	doc, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.doc = doc
	return doc, nil
}

// URLs implements crawler.SitemapSource.
func (c *SitemapCache) URLs(ctx context.Context) ([]string, error) {
	doc, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return doc.URLs, nil
}

// SitemapStep fetches the sitemap and records its size and fingerprint.
// An empty sitemap is not a failure here; the audit decides whether the
// sitemap is large enough.
type SitemapStep struct {
	sitemap SitemapFetcher
}

// NewSitemapStep creates a SitemapStep.
func NewSitemapStep(s SitemapFetcher) *SitemapStep {
	return &SitemapStep{sitemap: s}
}

// Name returns the step name.
func (s *SitemapStep) Name() string {
	return StepSitemapFetch
}

// Do executes the step.
func (s *SitemapStep) Do(ctx context.Context, report *model.RunReport) error {
	doc, err := s.sitemap.Fetch(ctx)
	if err != nil {
		return err
	}
	report.SitemapURLs = len(doc.URLs)
	report.SitemapDigest = doc.Digest()
	return nil
}

// StatusStep runs status mode: the first sitemap URLs must all load.
type StatusStep struct {
	spider *crawler.Spider
}

// NewStatusStep creates a StatusStep.
func NewStatusStep(spider *crawler.Spider) *StatusStep {
	return &StatusStep{spider: spider}
}

// Name returns the step name.
func (s *StatusStep) Name() string {
	return StepSitemapStatus
}

// Do executes the step. The mode result is kept even when it has failures.
func (s *StatusStep) Do(ctx context.Context, report *model.RunReport) error {
	result, err := s.spider.CheckStatus(ctx)
	report.Status = result
	return err
}

// DeepCrawlStep runs deep-crawl mode: links found on the home page and
// recent posts must not be broken.
type DeepCrawlStep struct {
	spider *crawler.Spider
}

// NewDeepCrawlStep creates a DeepCrawlStep.
func NewDeepCrawlStep(spider *crawler.Spider) *DeepCrawlStep {
	return &DeepCrawlStep{spider: spider}
}

// Name returns the step name.
func (s *DeepCrawlStep) Name() string {
	return StepDeepCrawl
}

// Do executes the step. The mode result is kept even when it has failures.
func (s *DeepCrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	result, err := s.spider.DeepCrawl(ctx)
	report.DeepCrawl = result
	return err
}

// AuditStep runs one audit check. Each check is its own step so that it is
// reported and timed separately.
type AuditStep struct {
	auditor *audit.Auditor
	check   audit.Check
	target  *audit.Target
}

// NewAuditStep creates an AuditStep.
func NewAuditStep(auditor *audit.Auditor, check audit.Check, target *audit.Target) *AuditStep {
	return &AuditStep{auditor: auditor, check: check, target: target}
}

// Name returns the audit check name.
func (s *AuditStep) Name() string {
	return s.check.Name()
}

// Do executes the check. All findings are added to the report; the step
// fails when any finding is HIGH or above or the check could not run.
func (s *AuditStep) Do(ctx context.Context, report *model.RunReport) error {
	result := s.auditor.RunCheck(ctx, s.check, s.target)
	report.AddFindings(result.Findings...)

	if result.Err != nil && isContextError(result.Err) {
		return result.Err
	}
	if !result.Passed() {
		return errors.New(result.Message())
	}
	return nil
}
