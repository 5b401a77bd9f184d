// Package cli contains the gatectl commands, built using the Cobra library.
// gatectl runs the formatting gate once against a single pull request and
// exits; it needs no server and no database.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gatectl",
	Short: "Run the formatting gate once against a pull request",
	Long: `gatectl checks out a pull request's tree, runs the configured
formatter in verify mode, and reports the result as a commit status.
It is the one-shot companion to the formatgate server, suitable for
running inside CI jobs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().Bool("skip-report", false, "Do not write commit statuses or comments back to GitHub")
}

// setupLogging routes slog to stderr at the level the verbose flag asks for.
func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// githubToken resolves the API token from the environment. GITHUB_TOKEN is
// what Actions runners provide; the server's variable works as a fallback.
func githubToken() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("FORMATGATE_GITHUB_TOKEN")
}
