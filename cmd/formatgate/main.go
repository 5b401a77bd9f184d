package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/formatgate/formatgate/internal/adapter/driven/github"
	sqliteadapter "github.com/formatgate/formatgate/internal/adapter/driven/sqlite"
	"github.com/formatgate/formatgate/internal/adapter/driven/toolrunner"
	"github.com/formatgate/formatgate/internal/adapter/driven/workspace"
	httphandler "github.com/formatgate/formatgate/internal/adapter/driving/http"
	webhandler "github.com/formatgate/formatgate/internal/adapter/driving/web"
	"github.com/formatgate/formatgate/internal/application"
	"github.com/formatgate/formatgate/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"status_context", cfg.StatusContext,
		"workers", cfg.Workers,
		"run_timeout", cfg.RunTimeout,
	)

	if !cfg.HasGitHubCredentials() {
		return errors.New("FORMATGATE_GITHUB_TOKEN is required")
	}
	if cfg.WebhookSecret == "" {
		return errors.New("FORMATGATE_WEBHOOK_SECRET is required")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	runStore := sqliteadapter.NewRunRepo(db)
	repoStore := sqliteadapter.NewRepoRepo(db)
	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.StatusContext)
	ws := workspace.New(ghClient, cfg.WorkDir)
	formatter := toolrunner.New()

	// 6. Create services.
	executor := application.NewExecutor(ws, formatter, ghClient, runStore, cfg.BaseURL)
	gateSvc := application.NewGateService(ghClient, executor, runStore, repoStore, nil, cfg.Workers, cfg.RunTimeout)
	statsSvc := application.NewStatsService(runStore)

	go func() {
		if err := gateSvc.Start(ctx); err != nil {
			slog.Error("gate service error", "error", err)
		}
	}()

	// 7. Create HTTP handler with API, webhook, and report routes.
	apiHandler := httphandler.NewHandler(runStore, repoStore, gateSvc, statsSvc, cfg.WebhookSecret, slog.Default())
	reportPage := webhandler.NewHandler(runStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, reportPage, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("formatgate started",
		"listen_addr", cfg.ListenAddr,
		"status_context", cfg.StatusContext,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
