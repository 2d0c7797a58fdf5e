package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-cut/internal/config"
	"github.com/heimdex/heimdex-cut/internal/logging"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "heimdex-cut",
	Short: "Transcript-driven, non-destructive video editing",
	Long: `heimdex-cut edits video by editing its transcript. Deletions, speed
changes, duplicates and reorders are stored as an operation log (EDL) and
compiled into playback skip lists, a composed timeline or a CMX3600 export.`,
	Version:      config.Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// setupLogging sends CLI logs to stderr; serve replaces the logger with
// one configured from the environment.
func setupLogging() {
	level := "info"
	if verbose {
		level = "debug"
	}
	if quiet {
		level = "error"
	}
	slog.SetDefault(logging.NewLoggerTo(os.Stderr, level))
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}
