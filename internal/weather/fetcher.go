package weather

import (
	"context"
	"errors"
	"log/slog"

	"weatherwatch/internal/location"
	"weatherwatch/internal/types"
)

// Provider wraps the external weather provider's current-conditions query.
// Implementations classify failures into the closed upstream error codes
// (Unauthorized, RateLimited, LocationNotFound, Unreachable); callers never
// infer the failure kind from message text.
type Provider interface {
	CurrentConditions(ctx context.Context, spec types.LocationSpec) (types.Reading, error)
}

// Fetcher is the read path for current weather: cache in front of the
// provider, with write-through on success and failure recording on error.
type Fetcher struct {
	provider Provider
	cache    *Cache
	failures *FailureLog
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher over the given provider, cache, and failure log.
func NewFetcher(provider Provider, cache *Cache, failures *FailureLog, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		provider: provider,
		cache:    cache,
		failures: failures,
		logger:   logger,
	}
}

// Current fetches the current reading for a location spec, deriving the
// canonical key from the spec.
func (f *Fetcher) Current(ctx context.Context, spec types.LocationSpec) (types.Reading, error) {
	key, err := location.Resolve(spec)
	if err != nil {
		return types.Reading{}, err
	}
	return f.CurrentForKey(ctx, key, spec)
}

// CurrentForKey fetches the current reading for a location identified by a
// precomputed canonical key. A cache hit within the TTL short-circuits the
// provider call entirely. On provider success the reading is written through
// to the cache and any prior failure record for the key is cleared; on
// failure a human-readable failure record is stored for the key.
func (f *Fetcher) CurrentForKey(ctx context.Context, key string, spec types.LocationSpec) (types.Reading, error) {
	if reading, ok := f.cache.Get(key); ok {
		f.logger.DebugContext(ctx, "weather cache hit", "location", key)
		return reading, nil
	}

	reading, err := f.provider.CurrentConditions(ctx, spec)
	if err != nil {
		f.failures.Record(key, failureReason(err))
		f.logger.WarnContext(ctx, "weather fetch failed",
			"location", key,
			"code", types.CodeOf(err),
			"error", err,
		)
		return types.Reading{}, err
	}

	f.cache.Put(key, reading)
	f.failures.Clear(key)
	return reading, nil
}

// Cache exposes the underlying cache for operational inspection endpoints.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// Failures exposes the failure log for operational inspection endpoints.
func (f *Fetcher) Failures() *FailureLog {
	return f.failures
}

// failureReason renders the human-readable reason stored in a failure record.
// AppErrors carry a message designed for operators; anything else falls back
// to the raw error text.
func failureReason(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
