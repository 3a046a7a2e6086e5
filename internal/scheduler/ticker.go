package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"weatherwatch/internal/metrics"
)

// DefaultTickInterval is the evaluation period when none is configured.
const DefaultTickInterval = 5 * time.Minute

// Ticker drives the Engine on a fixed interval. Ticks never overlap: the
// underlying scheduler runs the job in singleton mode and an explicit
// in-progress guard skips (with a log line) any tick that fires while the
// previous one is still running, avoiding duplicate fetch storms and
// duplicate notifications.
type Ticker struct {
	engine    *Engine
	scheduler *gocron.Scheduler
	interval  time.Duration
	logger    *slog.Logger
	running   atomic.Bool
}

// NewTicker creates a Ticker that runs the engine every interval.
// A non-positive interval falls back to DefaultTickInterval.
func NewTicker(engine *Engine, interval time.Duration, logger *slog.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		engine:    engine,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the recurring tick and begins execution. The first tick
// runs immediately rather than waiting a full interval.
func (t *Ticker) Start(ctx context.Context) error {
	t.logger.InfoContext(ctx, "starting alert evaluation ticker",
		"interval", t.interval.String(),
	)

	job := func() {
		t.runOnce(ctx)
	}

	_, err := t.scheduler.Every(t.interval).
		SingletonMode().
		StartImmediately().
		Do(job)
	if err != nil {
		return err
	}

	t.scheduler.StartAsync()
	return nil
}

// Stop halts the scheduler. An in-flight tick is abandoned at its next
// suspension point; no fetch result is written anywhere until it has fully
// returned, so cache and store state stay consistent.
func (t *Ticker) Stop() {
	t.scheduler.Stop()
	t.logger.Info("alert evaluation ticker stopped")
}

// runOnce executes a single guarded tick.
func (t *Ticker) runOnce(ctx context.Context) {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.WarnContext(ctx, "previous tick still running; skipping this interval")
		metrics.TicksTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer t.running.Store(false)

	summary, err := t.engine.RunTick(ctx)
	if err != nil {
		// The only fatal tick condition is failing to load the alert list;
		// the next interval retries with zero side effects from this one.
		t.logger.ErrorContext(ctx, "tick aborted",
			"error", err,
			"duration", summary.Duration.String(),
		)
	}
}
