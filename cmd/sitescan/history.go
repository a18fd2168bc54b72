package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
)

// NewHistoryCmd creates the history command.
// It lists and compares runs stored by 'sitescan scan'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site-url]",
		Short: "List and compare stored runs",
		Long: `History shows the runs stored in the history database.

Without flags it lists the runs of a site, newest first. With --compare it
shows which failures appeared or disappeared between two runs, and whether
the sitemap changed in between.

Examples:
  # List all sites with stored runs
  sitescan history --list-sites

  # List the last 20 runs of a site
  sitescan history -n 20 https://example.com

  # Compare the latest two runs of a site
  sitescan history --compare https://example.com

  # Compare the latest run with run 5
  sitescan history --compare --with-run-id 5 https://example.com

  # Print a stored run report
  sitescan history --show 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false, "List all sites in the database")
	cmd.Flags().Bool("compare", false, "Compare the latest run with the previous one")
	cmd.Flags().Int64P("with-run-id", "i", 0, "Compare the latest run with this run instead")
	cmd.Flags().Int64("show", 0, "Print the stored report of this run")
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of runs to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	site      string
	listSites bool
	compare   bool
	withRunID int64
	show      int64
	limit     int
	json      bool
	dbDir     string
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return opts, err
	}
	if opts.show, err = flags.GetInt64("show"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if len(args) > 0 {
		opts.site = strings.TrimSuffix(args[0], "/")
	}

	// Validate arguments before opening the database.
	if opts.site != "" && !config.IsSiteURL(opts.site) {
		return opts, fmt.Errorf("%w: %s", config.ErrInvalidTarget, opts.site)
	}
	if opts.compare && opts.site == "" {
		return opts, errors.New("site URL is required with --compare")
	}
	if opts.withRunID != 0 && !opts.compare {
		return opts, errors.New("--with-run-id requires --compare")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'sitescan scan' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.listSites:
		sites, err := db.ListSites(ctx)
		if err != nil {
			return err
		}
		return printSites(out, sites, opts.json)

	case opts.show > 0:
		r, err := db.GetRun(ctx, opts.show)
		if err != nil {
			return fmt.Errorf("run %d: %w", opts.show, err)
		}
		cfg := config.NewConfig()
		if opts.json {
			cfg.Format = config.FormatJSON
		}
		_, err = newReportWriter(cfg, out).Write(r)
		return err

	case opts.compare:
		var cmp *database.Comparison
		if opts.withRunID > 0 {
			cmp, err = compareWithRun(cmd, db, opts)
		} else {
			cmp, err = db.CompareLatest(ctx, opts.site)
		}
		if err != nil {
			return err
		}
		return printComparison(out, cmp, opts.json)

	default:
		runs, err := db.ListRuns(ctx, opts.site, opts.limit)
		if err != nil {
			return err
		}
		return printRuns(out, opts.site, runs, opts.json)
	}
}

// compareWithRun compares the latest run of the site with a chosen run.
func compareWithRun(cmd *cobra.Command, db *database.RunDB, opts historyOptions) (*database.Comparison, error) {
	ctx := cmd.Context()

	old, err := db.GetRunMeta(ctx, opts.withRunID)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", opts.withRunID, err)
	}
	if strings.TrimSuffix(old.Site, "/") != opts.site {
		return nil, fmt.Errorf("run %d belongs to %s, not %s", old.ID, old.Site, opts.site)
	}

	latest, err := db.ListRuns(ctx, opts.site, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 || latest[0].ID == old.ID {
		return nil, database.ErrNotEnoughRuns
	}
	return db.CompareRuns(ctx, old.ID, latest[0].ID)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSites(out io.Writer, sites []string, asJSON bool) error {
	if asJSON {
		return writeJSON(out, sites)
	}
	if len(sites) == 0 {
		fmt.Fprintln(out, "No sites found in the database.")
		fmt.Fprintln(out, "\nUse 'sitescan scan <site-url>' to scan a site.")
		return nil
	}

	fmt.Fprintf(out, "Scanned sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'sitescan history <site-url>' to see the runs of a site.")
	return nil
}

func printRuns(out io.Writer, site string, runs []database.RunMeta, asJSON bool) error {
	if asJSON {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	title := "Run history"
	if site != "" {
		title += " for " + site
	}
	fmt.Fprintf(out, "%s (%d runs):\n\n", title, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %-8s  %-8s  %s\n", "ID", "Date", "Status", "Checks", "Broken", "Site")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9s  %-8s  %-8d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runStatus(run),
			fmt.Sprintf("%d/%d", run.ChecksFailed, run.ChecksTotal),
			run.Failures,
			run.Site,
		)
	}
	return nil
}

func runStatus(run database.RunMeta) string {
	switch {
	case run.TimedOut:
		return "TIMED OUT"
	case run.Passed:
		return "PASSED"
	default:
		return "FAILED"
	}
}

func printComparison(out io.Writer, cmp *database.Comparison, asJSON bool) error {
	if asJSON {
		return writeJSON(out, cmp)
	}

	fmt.Fprintf(out, "Comparing run %d (%s, %s) with run %d (%s, %s)\n\n",
		cmp.Old.ID, cmp.Old.StartedAt.Local().Format("2006-01-02 15:04"), runStatus(cmp.Old),
		cmp.New.ID, cmp.New.StartedAt.Local().Format("2006-01-02 15:04"), runStatus(cmp.New),
	)

	if cmp.SitemapChanged() {
		fmt.Fprintf(out, "Sitemap changed: %d -> %d URLs\n\n", cmp.Old.SitemapURLs, cmp.New.SitemapURLs)
	} else {
		fmt.Fprintln(out, "Sitemap unchanged")
		fmt.Fprintln(out)
	}

	if !cmp.HasChanges() {
		fmt.Fprintf(out, "No changes in failures (%d persisting)\n", cmp.Persisting)
		return nil
	}

	if len(cmp.Introduced) > 0 {
		fmt.Fprintf(out, "New failures (%d):\n", len(cmp.Introduced))
		for _, f := range cmp.Introduced {
			fmt.Fprintf(out, "  + [%s] %s\n", f.Check, f.Line)
		}
		fmt.Fprintln(out)
	}
	if len(cmp.Resolved) > 0 {
		fmt.Fprintf(out, "Resolved failures (%d):\n", len(cmp.Resolved))
		for _, f := range cmp.Resolved {
			fmt.Fprintf(out, "  - [%s] %s\n", f.Check, f.Line)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Persisting failures: %d\n", cmp.Persisting)
	return nil
}
