// Package main is the headless alert evaluator. It runs the same evaluation
// engine as the API server without the HTTP surface, for deployments that
// separate serving from scheduled evaluation.
//
// With -once, a single evaluation cycle runs and the process exits; this is
// the mode used by external schedulers (cron, systemd timers).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"weatherwatch/internal/config"
	"weatherwatch/internal/db"
	"weatherwatch/internal/external"
	"weatherwatch/internal/notifications"
	"weatherwatch/internal/notifications/email"
	"weatherwatch/internal/scheduler"
	"weatherwatch/internal/types"
	"weatherwatch/internal/weather"
)

func main() {
	once := flag.Bool("once", false, "run a single evaluation cycle and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("weatherwatch evaluator starting",
		"environment", cfg.Environment,
		"once", once,
		"check_interval", cfg.Engine.Interval.String(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parsing database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	if err := db.ApplySchema(ctx, pool); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	alertRepo := db.NewAlertRepository(pool)

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

	engine := scheduler.NewEngine(scheduler.EngineConfig{
		Store:            alertRepo,
		Fetcher:          fetcher,
		Notifier:         buildNotifier(cfg, logger),
		FetchConcurrency: cfg.Engine.FetchConcurrency,
		Logger:           logger,
		Clock:            clock,
	})

	if once {
		summary, err := engine.RunTick(ctx)
		if err != nil {
			return fmt.Errorf("evaluation cycle: %w", err)
		}
		logger.Info("evaluation cycle complete",
			"alerts_total", summary.AlertsTotal,
			"alerts_evaluated", summary.AlertsEvaluated,
			"locations", summary.Locations,
			"fetches_failed", summary.FetchesFailed,
			"notifications", summary.Notifications,
		)
		return nil
	}

	ticker := scheduler.NewTicker(engine, cfg.Engine.Interval, logger)
	if err := ticker.Start(ctx); err != nil {
		return fmt.Errorf("starting ticker: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutdown signal received", "signal", sig.String())

	ticker.Stop()
	cancel()

	// Give an in-flight tick a moment to observe cancellation.
	time.Sleep(100 * time.Millisecond)
	logger.Info("evaluator stopped cleanly")
	return nil
}

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
