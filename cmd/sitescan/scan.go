package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/pipeline"
	"github.com/nao1215/sitescan/internal/report"
	"github.com/nao1215/sitescan/internal/transport"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [site-url...]",
		Short: "Check a deployed site for broken pages, links and misconfiguration",
		Long: `Scan runs the smoke test suite against one or more sites.

Each run performs, in order:
- Status mode: the first sitemap URLs must answer 200
- Deep-crawl mode: links on the home page and recent posts must resolve
- Audit: HTTPS, security headers, sitemap, robots.txt, search index,
  critical assets, exposed files, 404 caching and mixed content

When no site is given, the URL is read from $SITE_URL.

Examples:
  # Scan a single site
  sitescan scan https://example.com

  # Scan the site named by $SITE_URL
  SITE_URL=https://staging.example.com sitescan scan

  # Scan several sites, two at a time, and write a Markdown report
  sitescan scan -b 2 --format markdown -o report.md https://a.example https://b.example

  # Only run status and deep-crawl modes
  sitescan scan --skip-audit https://example.com

Configuration file (.sitescan) example:
  defaults:
    ignorePatterns:
      - "^https://(www\\.)?linkedin\\.com/"
  sites:
    staging.example.com:
      cookie: "preview=secret"
      statusBudget: 50`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Budget flags
	cmd.Flags().Int("status-budget", config.DefaultStatusBudget,
		"Number of sitemap URLs verified in status mode")
	cmd.Flags().Int("seed-budget", config.DefaultSeedBudget,
		"Number of pages deep-crawl mode extracts links from (home page included)")
	cmd.Flags().Int("link-budget", config.DefaultLinkBudget,
		"Number of new links verified per seed page")
	cmd.Flags().String("post-pattern", config.DefaultPostPattern,
		"Substring that marks post pages in the sitemap")

	// Timeout flags
	cmd.Flags().Duration("status-timeout", config.DefaultStatusTimeout,
		"Timeout for each status mode request")
	cmd.Flags().Duration("link-timeout", config.DefaultLinkTimeout,
		"Timeout for each deep-crawl link check")
	cmd.Flags().Duration("navigation-timeout", config.DefaultNavigationTimeout,
		"Timeout for loading a seed page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRunTimeout,
		"Timeout for one complete site run")

	// HTTP flags
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")
	cmd.Flags().Float64("rate-limit", 0, "Maximum requests per second per host (0 = unlimited)")

	// Rendering flags
	cmd.Flags().Bool("render", false, "Extract deep-crawl links from a headless Chrome rendering")
	cmd.Flags().String("chrome-path", "", "Chrome executable used with --render")

	// Mode flags
	cmd.Flags().Bool("skip-deep-crawl", false, "Skip deep-crawl mode")
	cmd.Flags().Bool("skip-audit", false, "Skip the configuration and security audit")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of concurrent site runs")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescan in current or home directory)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.FormatText, "Report format: text, json, markdown or xlsx")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false, "Do not store the run in the history database")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ProxyAddress != "" {
		logger.Debug("checking proxy", "address", cfg.ProxyAddress)
		if status := transport.CheckProxy(ctx, cfg.ProxyAddress); status != transport.ProxyStatusOK {
			return fmt.Errorf("proxy %s: %w", cfg.ProxyAddress, status.Err())
		}
	}

	passed, err := runScan(ctx, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !passed {
		return errChecksFailed
	}
	return nil
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	intFlags := []struct {
		name string
		dst  *int
	}{
		{"status-budget", &cfg.StatusBudget},
		{"seed-budget", &cfg.SeedBudget},
		{"link-budget", &cfg.LinkBudget},
		{"batch", &cfg.BatchSize},
	}
	for _, f := range intFlags {
		if *f.dst, err = flags.GetInt(f.name); err != nil {
			return nil, err
		}
	}

	durationFlags := []struct {
		name string
		dst  *time.Duration
	}{
		{"status-timeout", &cfg.StatusTimeout},
		{"link-timeout", &cfg.LinkTimeout},
		{"navigation-timeout", &cfg.NavigationTimeout},
		{"timeout", &cfg.RunTimeout},
	}
	for _, f := range durationFlags {
		if *f.dst, err = flags.GetDuration(f.name); err != nil {
			return nil, err
		}
	}

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"post-pattern", &cfg.PostPattern},
		{"user-agent", &cfg.UserAgent},
		{"proxy", &cfg.ProxyAddress},
		{"chrome-path", &cfg.ChromePath},
		{"config", &cfg.ConfigFilePath},
		{"format", &cfg.Format},
		{"output", &cfg.ReportFile},
		{"db-dir", &cfg.DBDir},
	}
	for _, f := range stringFlags {
		if *f.dst, err = flags.GetString(f.name); err != nil {
			return nil, err
		}
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"insecure", &cfg.InsecureSkipVerify},
		{"render", &cfg.Render},
		{"skip-deep-crawl", &cfg.SkipDeepCrawl},
		{"skip-audit", &cfg.SkipAudit},
		{"verbose", &cfg.Verbose},
		{"log-json", &cfg.LogJSON},
	}
	for _, f := range boolFlags {
		// verbose and log-json are inherited from the root command and
		// absent when the scan command runs on its own.
		if flags.Lookup(f.name) == nil {
			continue
		}
		if *f.dst, err = flags.GetBool(f.name); err != nil {
			return nil, err
		}
	}

	if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	targets := args
	if len(targets) == 0 {
		if site := os.Getenv(config.EnvSiteURL); site != "" {
			targets = []string{site}
		}
	}
	// Runs are stored under the site URL, so "https://example.com/" and
	// "https://example.com" must name the same site.
	cfg.Targets = make([]string, 0, len(targets))
	for _, t := range targets {
		cfg.Targets = append(cfg.Targets, strings.TrimSuffix(strings.TrimSpace(t), "/"))
	}

	return cfg, nil
}

// runScan runs every target and writes the report to stdout or the report
// file. It returns whether every site passed.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (bool, error) {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return false, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	bp := pipeline.NewBatchProcessor(
		func(site string) (*pipeline.Pipeline, error) {
			return pipeline.DefaultPipeline(cfg, site, pipeline.WithLogger(logger.With("site", site)))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithRunTimeout(cfg.RunTimeout),
		pipeline.WithBatchLogger(logger),
	)

	reports, batchErr := bp.ProcessBatch(ctx, cfg.Targets)

	completed := make([]*model.RunReport, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			// Cancelled before the run started.
			continue
		}
		completed = append(completed, r)
		if err := saveRunReport(ctx, db, r, logger); err != nil {
			logger.Error("failed to save run report", "site", r.Site, "error", err)
		}
	}

	if len(completed) > 0 {
		if err := outputReport(cfg, completed, stdout); err != nil {
			return false, fmt.Errorf("failed to write report: %w", err)
		}
	}
	if batchErr != nil {
		return false, fmt.Errorf("scan interrupted: %w", batchErr)
	}

	for _, r := range completed {
		if !r.Passed() {
			return false, nil
		}
	}
	return true, nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch cfg.Format {
	case config.FormatJSON:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(output)
	case config.FormatXLSX:
		return report.NewXLSXWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the reports in the requested format.
func outputReport(cfg *config.Config, reports []*model.RunReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain cookies echoed back in failure messages, so
		// the file is readable by the owner only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w := newReportWriter(cfg, output)
	var err error
	if len(reports) == 1 {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteBatch(reports)
	}
	return err
}

// saveRunReport saves the run report to the database.
// If db is nil, this function is a no-op.
func saveRunReport(ctx context.Context, db *database.RunDB, r *model.RunReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A cancelled scan still records the reports that finished.
	id, err := db.SaveRun(context.WithoutCancel(ctx), r)
	if err != nil {
		return err
	}

	logger.Info("run report saved to database", "site", r.Site, "run_id", id)
	return nil
}
