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

	"github.com/ericfisherdev/duopanel/internal/adapter/driven/macos"
	"github.com/ericfisherdev/duopanel/internal/adapter/driven/playchain"
	sqliteadapter "github.com/ericfisherdev/duopanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/duopanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/duopanel/internal/application"
	"github.com/ericfisherdev/duopanel/internal/config"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"store_path", cfg.StorePath,
		"listen_addr", cfg.ListenAddr,
		"tick_interval", cfg.TickInterval,
		"max_attempts", cfg.MaxAttempts,
		"cache_enabled", cfg.CacheEnabled(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the last-known-good cache when a key is configured.
	var cache driven.AccountCache
	if cfg.CacheEnabled() {
		db, err := sqliteadapter.Open(cfg.CacheDBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing cache db", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Conn()); err != nil {
			return err
		}

		repo := sqliteadapter.NewAccountRepo(db, cfg.SecretKey)
		if n, err := repo.Count(ctx); err == nil {
			slog.Info("cache opened", "path", cfg.CacheDBPath, "cached_accounts", n)
		}
		cache = repo
	} else {
		slog.Info("no DUOPANEL_SECRET_KEY configured, account cache disabled")
	}

	// 4. Wire adapters.
	reader := playchain.NewReader(cfg.StorePath, playchain.DefaultAccessGroup)
	proc := macos.NewController()
	ui := macos.NewAutomator()

	// 5. Create the orchestrator and scheduler.
	orch := application.NewOrchestrator(reader, proc, ui, application.OrchestratorConfig{
		HostApp:           cfg.HostApp,
		TargetProcess:     cfg.TargetProcess,
		PopulationTimeout: cfg.PopulationTimeout,
		PopulationPoll:    cfg.PopulationPoll,
		MaxAttempts:       cfg.MaxAttempts,
		CloseGrace:        cfg.CloseGrace,
	})
	sched := application.NewScheduler(orch, cache, cfg.TickInterval)
	go sched.Start(ctx)

	// 6. Serve the consumer API.
	handler := httphandler.NewServeMux(httphandler.NewHandler(sched, slog.Default()), slog.Default())

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

	slog.Info("duopanel started", "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal. An in-flight closing step finishes under
	// its own grace timeout; nothing here blocks process exit beyond the
	// http drain below.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
