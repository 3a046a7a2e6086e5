// Package main is the entry point for the weatherwatch API server.
//
// It loads configuration, connects to Postgres, builds the weather provider
// stack (client, cache, failure log), wires the HTTP handlers, and starts
// the alert evaluation ticker in-process alongside the server.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"weatherwatch/internal/api/handlers"
	"weatherwatch/internal/config"
	"weatherwatch/internal/core"
	"weatherwatch/internal/db"
	"weatherwatch/internal/external"
	"weatherwatch/internal/notifications"
	"weatherwatch/internal/notifications/email"
	"weatherwatch/internal/scheduler"
	"weatherwatch/internal/types"
	"weatherwatch/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("weatherwatch API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"check_interval", cfg.Engine.Interval.String(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database pool and schema.
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.ApplySchema(ctx, pool); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	alertRepo := db.NewAlertRepository(pool)

	// Weather provider stack: Tomorrow.io client behind a shared TTL cache
	// and failure log. The API handlers and the evaluation engine share one
	// fetcher, so a scheduled tick and an ad-hoc query for the same location
	// hit the upstream at most once per TTL window.
	clock := types.RealClock{}
	provider := external.NewTomorrowClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		external.TomorrowClientConfig{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
		},
	)
	cache := weather.NewCache(cfg.Weather.CacheTTL, clock)
	failures := weather.NewFailureLog(clock)
	fetcher := weather.NewFetcher(provider, cache, failures, logger)

	// Notification channel.
	notifier := buildNotifier(cfg, logger)

	// Evaluation engine and ticker.
	engine := scheduler.NewEngine(scheduler.EngineConfig{
		Store:            alertRepo,
		Fetcher:          fetcher,
		Notifier:         notifier,
		FetchConcurrency: cfg.Engine.FetchConcurrency,
		Logger:           logger,
		Clock:            clock,
	})
	ticker := scheduler.NewTicker(engine, cfg.Engine.Interval, logger)
	if err := ticker.Start(ctx); err != nil {
		return fmt.Errorf("starting ticker: %w", err)
	}
	defer ticker.Stop()

	// HTTP server.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	alertHandler := handlers.NewAlertHandler(alertRepo, srv.Validator, logger)
	weatherHandler := handlers.NewWeatherHandler(fetcher, logger)
	systemHandler := handlers.NewSystemHandler(cache, failures, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		alertHandler.RegisterRoutes,
		weatherHandler.RegisterRoutes,
		systemHandler.RegisterRoutes,
	)
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "database",
		Fn:        pool.Ping,
	})
	srv.MountRoutes()

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newPool creates a pgx connection pool from the database configuration and
// verifies connectivity before returning.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// buildNotifier wires the email channel when delivery is enabled and
// credentials are present, falling back to log-only notification otherwise.
func buildNotifier(cfg *config.Config, logger *slog.Logger) types.Notifier {
	if !cfg.Email.Enabled || cfg.Email.APIKey == "" {
		logger.Warn("email delivery disabled; triggered alerts will only be logged")
		return notifications.NewLogNotifier(logger)
	}

	sender := external.NewEmailClient(
		&http.Client{Timeout: cfg.Email.Timeout},
		external.EmailClientConfig{
			APIKey:      cfg.Email.APIKey,
			BaseURL:     cfg.Email.BaseURL,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		},
	)
	return email.NewChannel(email.ChannelConfig{
		Sender:       sender,
		DashboardURL: cfg.Email.DashboardURL,
		Logger:       logger,
	})
}

// newLogger creates a structured slog.Logger configured for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
