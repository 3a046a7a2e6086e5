package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"weatherwatch/internal/location"
	"weatherwatch/internal/metrics"
	"weatherwatch/internal/types"
)

// DefaultFetchConcurrency bounds the number of concurrent per-location
// fetches within a tick when no explicit limit is configured.
const DefaultFetchConcurrency = 8

// WeatherFetcher abstracts the cached weather read path the engine needs.
// The engine always fetches by precomputed group key so that every alert in a
// location group shares exactly one fetch outcome per tick.
type WeatherFetcher interface {
	CurrentForKey(ctx context.Context, key string, spec types.LocationSpec) (types.Reading, error)
}

// TickSummary counts the outcomes of one evaluation tick at per-location and
// per-alert granularity. A tick with partial failures is a successful tick,
// not an error.
type TickSummary struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"-"`

	AlertsTotal     int `json:"alertsTotal"`
	AlertsSkipped   int `json:"alertsSkipped"` // data errors: bad location spec, parameter, condition
	AlertsEvaluated int `json:"alertsEvaluated"`
	AlertsDeferred  int `json:"alertsDeferred"` // location fetch failed; prior state kept
	UpdatesFailed   int `json:"updatesFailed"`

	Locations     int `json:"locations"`
	FetchesOK     int `json:"fetchesOk"`
	FetchesFailed int `json:"fetchesFailed"`

	Notifications int `json:"notifications"`
}

// EngineConfig holds the configuration for creating an Engine.
type EngineConfig struct {
	Store            types.AlertStore
	Fetcher          WeatherFetcher
	Notifier         types.Notifier
	FetchConcurrency int
	Logger           *slog.Logger
	Clock            types.Clock
}

// Engine runs the evaluation cycle: load alerts, group by resolved location,
// fan out one fetch per distinct location with bounded concurrency, evaluate
// every alert against its group's reading, persist the derived state, and
// notify on new triggers.
//
// The engine is stateless across ticks except through the weather cache and
// the alert store. No failure from fetching one location, or evaluating or
// persisting one alert, ever escapes to abort the tick; the only fatal
// condition is failure to load the alert list itself.
type Engine struct {
	store       types.AlertStore
	fetcher     WeatherFetcher
	notifier    types.Notifier
	concurrency int
	logger      *slog.Logger
	clock       types.Clock
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &Engine{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		notifier:    cfg.Notifier,
		concurrency: concurrency,
		logger:      logger,
		clock:       clock,
	}
}

// locationGroup is one distinct resolved location and the alerts watching it.
// The representative spec is taken from the first alert in the group; all
// members resolve to the same key, so any member's spec identifies the same
// physical place to the provider.
type locationGroup struct {
	key    string
	spec   types.LocationSpec
	alerts []*types.Alert
}

// RunTick executes one evaluation cycle and returns its summary.
// The returned error is non-nil only when the alert list itself could not be
// loaded, in which case the tick ends with zero side effects.
func (e *Engine) RunTick(ctx context.Context) (TickSummary, error) {
	summary := TickSummary{StartedAt: e.clock.Now()}
	defer func() {
		summary.Duration = e.clock.Now().Sub(summary.StartedAt)
	}()

	alerts, err := e.store.ListAlerts(ctx)
	if err != nil {
		metrics.TicksTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("loading alerts: %w", err)
	}

	summary.AlertsTotal = len(alerts)
	if len(alerts) == 0 {
		metrics.TicksTotal.WithLabelValues("ok").Inc()
		return summary, nil
	}

	groups := e.groupAlerts(ctx, alerts, &summary)
	summary.Locations = len(groups)

	e.logger.InfoContext(ctx, "evaluating alerts",
		"alerts", summary.AlertsTotal,
		"locations", summary.Locations,
		"skipped", summary.AlertsSkipped,
	)

	// One fetch per distinct location group, fanned out with bounded
	// concurrency. Each group is processed end to end inside its own
	// goroutine; a failure in one group never cancels or delays another.
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, group := range groups {
		g.Go(func() error {
			reading, err := e.fetcher.CurrentForKey(gCtx, group.key, group.spec)
			if err != nil {
				// Alerts in a failed group keep their prior triggered
				// state untouched for this tick; the next tick retries.
				mu.Lock()
				summary.FetchesFailed++
				summary.AlertsDeferred += len(group.alerts)
				mu.Unlock()
				e.logger.WarnContext(gCtx, "location fetch failed; alerts keep prior state",
					"location", group.key,
					"alerts", len(group.alerts),
					"code", types.CodeOf(err),
					"error", err,
				)
				return nil
			}

			mu.Lock()
			summary.FetchesOK++
			mu.Unlock()

			for _, alert := range group.alerts {
				outcome := e.processAlert(gCtx, alert, reading)
				mu.Lock()
				switch outcome {
				case outcomeEvaluated:
					summary.AlertsEvaluated++
				case outcomeNotified:
					summary.AlertsEvaluated++
					summary.Notifications++
				case outcomeSkipped:
					summary.AlertsSkipped++
				case outcomeUpdateFailed:
					summary.AlertsEvaluated++
					summary.UpdatesFailed++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	// Group goroutines never return errors; Wait is for completion only.
	_ = g.Wait()

	metrics.TicksTotal.WithLabelValues("ok").Inc()
	metrics.TickDuration.Observe(e.clock.Now().Sub(summary.StartedAt).Seconds())
	metrics.FetchesTotal.WithLabelValues("ok").Add(float64(summary.FetchesOK))
	metrics.FetchesTotal.WithLabelValues("failed").Add(float64(summary.FetchesFailed))

	e.logger.InfoContext(ctx, "tick complete",
		"alerts_evaluated", summary.AlertsEvaluated,
		"alerts_deferred", summary.AlertsDeferred,
		"alerts_skipped", summary.AlertsSkipped,
		"fetches_ok", summary.FetchesOK,
		"fetches_failed", summary.FetchesFailed,
		"notifications", summary.Notifications,
	)

	return summary, nil
}

// groupAlerts partitions alerts into location groups. Alerts whose spec
// cannot be resolved, or whose parameter or condition is outside the
// enumerated set, are skipped and logged individually; they never abort the
// batch and are not retried within the tick.
func (e *Engine) groupAlerts(ctx context.Context, alerts []*types.Alert, summary *TickSummary) []*locationGroup {
	index := make(map[string]*locationGroup)
	var ordered []*locationGroup

	for _, alert := range alerts {
		if !alert.Parameter.Valid() || !alert.Condition.Valid() {
			summary.AlertsSkipped++
			metrics.AlertsSkippedTotal.Inc()
			e.logger.WarnContext(ctx, "alert has invalid rule; skipping",
				"alert_id", alert.ID,
				"parameter", alert.Parameter,
				"condition", alert.Condition,
			)
			continue
		}

		key, err := location.KeyFor(alert)
		if err != nil {
			summary.AlertsSkipped++
			metrics.AlertsSkippedTotal.Inc()
			e.logger.WarnContext(ctx, "alert location could not be resolved; skipping",
				"alert_id", alert.ID,
				"error", err,
			)
			continue
		}

		group, ok := index[key]
		if !ok {
			group = &locationGroup{key: key, spec: alert.Location}
			index[key] = group
			ordered = append(ordered, group)
		}
		group.alerts = append(group.alerts, alert)
	}

	return ordered
}

// alertOutcome classifies the result of processing one alert within a tick.
type alertOutcome int

const (
	outcomeEvaluated alertOutcome = iota
	outcomeNotified
	outcomeSkipped
	outcomeUpdateFailed
)

// processAlert evaluates one alert against its group's reading, persists the
// derived state as one atomic set, and notifies on a false-to-true
// transition. Telemetry fields are refreshed even when the triggered state
// did not change; notification fires only on the transition.
func (e *Engine) processAlert(ctx context.Context, alert *types.Alert, reading types.Reading) alertOutcome {
	value, err := ParameterValue(reading, alert.Parameter)
	if err != nil {
		e.logger.WarnContext(ctx, "alert parameter missing from reading; skipping",
			"alert_id", alert.ID,
			"parameter", alert.Parameter,
		)
		metrics.AlertsSkippedTotal.Inc()
		return outcomeSkipped
	}

	triggered, err := EvaluateCondition(value, alert.Condition, alert.Threshold)
	if err != nil {
		e.logger.WarnContext(ctx, "alert condition could not be evaluated; skipping",
			"alert_id", alert.ID,
			"condition", alert.Condition,
		)
		metrics.AlertsSkippedTotal.Inc()
		return outcomeSkipped
	}

	metrics.AlertsEvaluatedTotal.Inc()

	wasTriggered := alert.IsTriggered
	state := types.AlertState{
		IsTriggered:      triggered,
		LastChecked:      e.clock.Now(),
		LastValue:        &value,
		ResolvedLocation: location.DisplayName(reading.Location, alert.Location),
	}

	if _, err := e.store.UpdateAlertState(ctx, alert.ID, state); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist alert state",
			"alert_id", alert.ID,
			"error", err,
		)
		return outcomeUpdateFailed
	}

	// Keep the in-memory record consistent for the remainder of the tick.
	alert.IsTriggered = triggered
	alert.ResolvedLocation = state.ResolvedLocation

	if triggered && !wasTriggered {
		if err := e.notify(ctx, alert, value); err != nil {
			e.logger.ErrorContext(ctx, "notification failed",
				"alert_id", alert.ID,
				"error", err,
			)
			return outcomeEvaluated
		}
		metrics.NotificationsSentTotal.Inc()
		return outcomeNotified
	}

	return outcomeEvaluated
}

// notify invokes the external notifier once. The engine does not retry or
// dedupe beyond firing once per transition.
func (e *Engine) notify(ctx context.Context, alert *types.Alert, value float64) error {
	if e.notifier == nil {
		return nil
	}
	return e.notifier.Notify(ctx, alert, value)
}
