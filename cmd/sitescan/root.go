package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/log"
)

// errChecksFailed is returned when a run completed but at least one check
// failed. The report has already been printed, so Execute only sets the
// exit status.
var errChecksFailed = errors.New("one or more checks failed")

// NewRootCmd creates the root command for sitescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescan",
		Short: "Post-deploy smoke test for static sites",
		Long: `sitescan checks a deployed static site for broken pages and links.

It verifies the first sitemap URLs (status mode), follows links on the home
page and recent posts (deep-crawl mode), and audits security headers,
robots.txt, the search index and exposed files. The exit status is non-zero
when any check fails, so it can gate a deployment pipeline.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// setupLogger creates the secure structured logger selected by the global
// flags. Logs go to w, which is stderr outside of tests.
func setupLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err == nil && logJSON {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}
