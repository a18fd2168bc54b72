// Package crawler drives the bounded crawl and verify engine.
//
// # Architecture
//
// The Spider coordinates three collaborators:
//
//   - a SitemapSource that lists the site's published URLs
//   - a LinkSource that returns the anchors of a rendered page
//   - a Verifier that classifies a single URL
//
// Two modes are provided. CheckStatus verifies a capped prefix of the sitemap
// with first-party semantics: every HTTP or network error is a failure.
// DeepCrawl selects seed pages (the home page plus post pages), extracts each
// seed's anchors, and verifies them with third-party semantics: network
// errors are logged as warnings and never fail the run.
//
// Both modes collect every failure and return a single *model.AggregateError
// at the end, so one run surfaces every broken link at once.
//
// # Bounds
//
// Work is capped by three budgets (status URLs, seed pages, links per page)
// and depth is exactly one: links found on seed pages are verified but never
// crawled for further links. A VisitedSet scoped to one DeepCrawl call ensures
// each link is fetched at most once per run.
//
// # Link sources
//
// HTTPSource fetches pages with a plain GET and parses the static HTML.
// ChromeSource renders pages in headless Chrome so anchors inserted by
// scripts are seen too.
//
// # Usage
//
//	spider := crawler.NewSpider(reader, crawler.NewHTTPSource(client), verifier,
//		crawler.WithSeedBudget(10))
//	result, err := spider.DeepCrawl(ctx)
package crawler
