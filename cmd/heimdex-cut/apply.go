package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-cut/internal/config"
	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/edlclient"
	"github.com/heimdex/heimdex-cut/internal/editor"
)

var applyCmd = &cobra.Command{
	Use:   "apply <suggestion-file>",
	Short: "Apply a suggestion to a project on a running server",
	Long: `Load a project's transcript and latest EDL from a running heimdex-cut
server, apply a suggestion file as one edit and save the result as the next
EDL version.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var (
	applyServer  string
	applyToken   string
	applyProject string
	applyTimeout time.Duration
)

func init() {
	applyCmd.Flags().StringVar(&applyServer, "server", "", "server base URL (default: http://127.0.0.1:<HEIMDEX_CUT_PORT>)")
	applyCmd.Flags().StringVar(&applyToken, "token", "", "API bearer token (default: HEIMDEX_CUT_AUTH_TOKEN)")
	applyCmd.Flags().StringVarP(&applyProject, "project", "p", "", "project id")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 30*time.Second, "overall request timeout")
	applyCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read suggestion: %w", err)
	}
	sug, err := edl.DecodeSuggestion(raw, time.Now().UTC())
	if err != nil {
		return err
	}
	if !sug.Actionable() {
		fmt.Fprintf(cmd.OutOrStdout(), "nothing to apply: %s\n", sug.Description)
		return nil
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	server := applyServer
	if server == "" {
		server = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port())
	}
	token := applyToken
	if token == "" {
		token = cfg.AuthToken()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), applyTimeout)
	defer cancel()

	logger := slog.Default()
	client := edlclient.NewClient(server, token, logger)

	tr, err := client.GetTranscript(ctx, applyProject)
	if err != nil {
		return err
	}
	doc, err := client.GetEDL(ctx, applyProject)
	if err != nil {
		return err
	}

	ed := editor.New(tr, editor.Options{
		HistoryLimit: cfg.HistoryLimit(),
		Epsilon:      cfg.MergeEpsilon(),
		Logger:       logger,
	})
	if skipped := ed.Load(doc.Operations); skipped > 0 {
		logger.Warn("stored EDL references missing content", "skipped", skipped)
	}

	saver := editor.NewAutosaver(client, applyProject, doc.Version, cfg.AutosaveDelay(), logger)
	defer saver.Stop()
	saver.Attach(ed)

	ed.Preview(sug)
	skipped, err := ed.ApplySuggestion()
	if err != nil {
		return err
	}
	if !saver.Dirty() {
		fmt.Fprintln(cmd.OutOrStdout(), "suggestion did not change the edit")
		return nil
	}

	if err := saver.Flush(ctx); err != nil {
		if edlclient.IsConflict(err) {
			return fmt.Errorf("project changed on the server since version %d, retry: %w", doc.Version, err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "applied %s: saved EDL version %d", sug.Kind, saver.Version())
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d entries skipped)", skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
