package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// anchorsScript returns the resolved href of every anchor in the live DOM.
const anchorsScript = `[...document.querySelectorAll('a[href]')].map(a => a.href).filter(h => h)`

// ChromeOptions configures a ChromeSource.
type ChromeOptions struct {
	// Timeout bounds navigation plus link extraction for one page.
	Timeout time.Duration

	// UserAgent overrides the browser's User-Agent.
	UserAgent string

	// WaitSelector is awaited after navigation. Defaults to "body".
	WaitSelector string

	// DisableHeadless shows the browser window, for debugging.
	DisableHeadless bool

	// ExecPath points at a specific Chrome binary. Empty uses chromedp's lookup.
	ExecPath string
}

// ChromeSource renders pages in headless Chrome and reads anchors from the
// resulting DOM, so links inserted by scripts are included.
type ChromeSource struct {
	opts   ChromeOptions
	logger *slog.Logger
}

// NewChromeSource creates a ChromeSource. A nil logger uses slog.Default().
func NewChromeSource(opts ChromeOptions, logger *slog.Logger) *ChromeSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(opts.WaitSelector) == "" {
		opts.WaitSelector = "body"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeSource{opts: opts, logger: logger}
}

// allocatorOptions builds the Chrome launch flags.
func (c *ChromeSource) allocatorOptions() []chromedp.ExecAllocatorOption {
	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", !c.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if c.opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return execOpts
}

// Links navigates to pageURL and returns the anchors of the rendered page.
// A navigation answered with status >= 400 returns ErrPageStatus.
func (c *ChromeSource) Links(ctx context.Context, pageURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	logger := c.logger.With("url", pageURL)
	start := time.Now()

	resp, err := chromedp.RunResponse(chromeCtx, chromedp.Navigate(pageURL))
	if err != nil {
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}
	if resp != nil && resp.Status >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrPageStatus, resp.Status)
	}

	links := make([]string, 0)
	if err := chromedp.Run(chromeCtx,
		chromedp.WaitReady(c.opts.WaitSelector, chromedp.ByQuery),
		chromedp.Evaluate(anchorsScript, &links),
	); err != nil {
		return nil, fmt.Errorf("chromedp extract links: %w", err)
	}

	logger.Debug("chromedp render complete",
		"latency_ms", time.Since(start).Milliseconds(),
		"links", len(links),
	)
	return links, nil
}
