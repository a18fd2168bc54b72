package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescan/internal/model"
)

// Factory builds the pipeline of one site run.
type Factory func(site string) (*Pipeline, error)

// BatchProcessor handles concurrent runs against multiple sites.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single run
// 2. Each run gets a fresh pipeline from the factory, so crawl state such
// as visited sets never crosses runs
// 3. The per-run timeout is applied in one place
type BatchProcessor struct {
	factory     Factory
	concurrency int
	runTimeout  time.Duration
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRunTimeout bounds each site run. Zero means no per-run timeout.
func WithRunTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		b.runTimeout = d
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every site and returns the reports in input order.
//
// A failing or timed-out run never stops the others; its report carries the
// outcome. The returned error is non-nil only when the parent ctx is done.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) ([]*model.RunReport, error) {
	bp.logger.Info("starting batch processing", "total_sites", len(sites), "concurrency", bp.concurrency)
	start := time.Now()

	reports := make([]*model.RunReport, len(sites))
	err := bp.process(ctx, sites, func(report *model.RunReport, i int) {
		reports[i] = report
	})

	bp.logger.Info("batch processing complete", "total_sites", len(sites), "elapsed", time.Since(start))
	return reports, err
}

// ProcessBatchWithCallback runs every site and calls callback as each run
// completes. The callback is called from the run's goroutine and must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []string,
	callback func(report *model.RunReport, index int),
) error {
	return bp.process(ctx, sites, callback)
}

func (bp *BatchProcessor) process(ctx context.Context, sites []string, done func(*model.RunReport, int)) error {
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			done(bp.runOne(ctx, site), i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runOne executes a single site run under the run timeout.
func (bp *BatchProcessor) runOne(ctx context.Context, site string) *model.RunReport {
	report := model.NewRunReport(site)

	p, err := bp.factory(site)
	if err != nil {
		bp.logger.Error("failed to build pipeline", "site", site, "error", err)
		report.Error = err.Error()
		return report
	}

	if bp.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bp.runTimeout)
		defer cancel()
	}

	bp.logger.Info("scanning site", "site", site)
	if err := p.Execute(ctx, report); err != nil {
		bp.logger.Warn("run did not complete", "site", site, "error", err)
	}
	return report
}
