package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-cut/internal/api"
	"github.com/heimdex/heimdex-cut/internal/config"
	"github.com/heimdex/heimdex-cut/internal/db"
	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/logging"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/project"
	"github.com/heimdex/heimdex-cut/internal/suggest"
	"github.com/heimdex/heimdex-cut/internal/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local editing API",
	Long: `Run the HTTP API on 127.0.0.1. Projects, transcripts, EDL versions and
exports are kept in a SQLite database under the data directory. Settings come
from HEIMDEX_CUT_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir(), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	if verbose {
		logger = logging.NewLogger("debug")
	}
	slog.SetDefault(logger)
	logger.Info("starting heimdex-cut", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(cmd.Context(), repo, cfg.AuthToken())
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, sweep, err := newSuggestionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var transcriber transcribe.Runner
	if cfg.PipelinesEnabled() {
		tr, err := transcribe.NewRunner(transcribe.Config{
			PythonPath: cfg.PipelinesPython(),
			ModuleName: cfg.PipelinesModule(),
			Timeout:    cfg.TranscribeTimeout(),
			Logger:     logging.WithComponent(logger, "transcribe"),
		})
		if err != nil {
			logger.Warn("speech pipeline unavailable, transcription disabled", "error", err)
		} else {
			transcriber = tr
		}
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Projects:    project.NewService(repo, logging.WithComponent(logger, "projects")),
		Repository:  repo,
		Suggestions: suggest.NewService(store, cfg.SuggestionTTL(), logging.WithComponent(logger, "suggestions")),
		Media:       playback.NewMediaServer(logger),
		EditorOptions: editor.Options{
			HistoryLimit: cfg.HistoryLimit(),
			Epsilon:      cfg.MergeEpsilon(),
			Logger:       logger,
		},
		ExportDir:   cfg.ExportDir(),
		Transcriber: transcriber,
		WorkDir:     cfg.ArtifactsDir(),
		Logger:      logger,
		StartTime:   startTime,
		Version:     config.Version,
	})

	fmt.Println()
	fmt.Printf("  heimdex-cut %s\n", config.Version)
	fmt.Printf("  API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	if sweep != nil {
		g.Go(func() error {
			sweep(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// newSuggestionStore picks Redis when configured. The in-process store
// comes with a sweeper that drops expired suggestions.
func newSuggestionStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (suggest.Store, func(context.Context), error) {
	if cfg.RedisURL() != "" {
		rs, err := suggest.NewRedisStore(cfg.RedisURL())
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("redis unavailable: %w", err)
		}
		logger.Info("pending suggestions stored in redis", "url", logging.RedactURL(cfg.RedisURL()))
		return rs, nil, nil
	}

	ms := suggest.NewMemoryStore()
	sweep := func(ctx context.Context) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := ms.Sweep(now); n > 0 {
					logger.Debug("expired suggestions dropped", "count", n)
				}
			}
		}
	}
	return ms, sweep, nil
}

// ensureAuthToken stores the configured token, or generates one on first
// start and keeps it across restarts.
func ensureAuthToken(ctx context.Context, repo project.Repository, configured string) (string, error) {
	if configured != "" {
		if err := repo.SetConfig(ctx, api.AuthTokenKey, configured); err != nil {
			return "", err
		}
		return configured, nil
	}

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}
	return token, nil
}
