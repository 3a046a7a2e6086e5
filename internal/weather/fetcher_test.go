package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatch/internal/types"
)

type mockProvider struct {
	calls   int
	fetchFn func(ctx context.Context, spec types.LocationSpec) (types.Reading, error)
}

func (m *mockProvider) CurrentConditions(ctx context.Context, spec types.LocationSpec) (types.Reading, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, spec)
	}
	return types.Reading{}, nil
}

func newTestFetcher(provider *mockProvider, clock types.Clock) *Fetcher {
	return NewFetcher(provider, NewCache(5*time.Minute, clock), NewFailureLog(clock), nil)
}

func TestFetcher_CacheHitSkipsProvider(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{fetchFn: func(ctx context.Context, spec types.LocationSpec) (types.Reading, error) {
		return types.Reading{Temperature: 18}, nil
	}}
	fetcher := newTestFetcher(provider, clock)

	spec := types.LocationSpec{City: "Paris"}

	first, err := fetcher.Current(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 18.0, first.Temperature)

	second, err := fetcher.Current(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 18.0, second.Temperature)
	assert.Equal(t, 1, provider.calls)
}

func TestFetcher_RefetchAfterTTL(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{}
	fetcher := newTestFetcher(provider, clock)

	spec := types.LocationSpec{City: "Paris"}

	_, err := fetcher.Current(context.Background(), spec)
	require.NoError(t, err)

	clock.advance(6 * time.Minute)

	_, err = fetcher.Current(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestFetcher_EquivalentSpecsShareCacheEntry(t *testing.T) {
	provider := &mockProvider{}
	fetcher := newTestFetcher(provider, newFakeClock())

	_, err := fetcher.Current(context.Background(), types.LocationSpec{City: "New York, NY"})
	require.NoError(t, err)
	_, err = fetcher.Current(context.Background(), types.LocationSpec{City: "new york  ny"})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}

func TestFetcher_FailureRecordedAndClearedOnRecovery(t *testing.T) {
	provider := &mockProvider{}
	fail := true
	provider.fetchFn = func(ctx context.Context, spec types.LocationSpec) (types.Reading, error) {
		if fail {
			return types.Reading{}, types.NewAppError(types.ErrCodeUpstreamRateLimited, "rate limit exceeded", nil)
		}
		return types.Reading{Temperature: 9}, nil
	}
	fetcher := newTestFetcher(provider, newFakeClock())

	spec := types.LocationSpec{City: "Oslo"}

	_, err := fetcher.Current(context.Background(), spec)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, types.CodeOf(err))

	failed := fetcher.Failures().Snapshot()
	require.Len(t, failed, 1)
	assert.Equal(t, "oslo", failed[0].Key)
	assert.Equal(t, "rate limit exceeded", failed[0].Reason)

	// A failed fetch caches nothing; the next call retries immediately.
	fail = false
	reading, err := fetcher.Current(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 9.0, reading.Temperature)
	assert.Empty(t, fetcher.Failures().Snapshot())
	assert.Equal(t, 2, provider.calls)
}

func TestFetcher_InvalidSpecRejectedBeforeProvider(t *testing.T) {
	provider := &mockProvider{}
	fetcher := newTestFetcher(provider, newFakeClock())

	_, err := fetcher.Current(context.Background(), types.LocationSpec{})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationInvalidLocation, types.CodeOf(err))
	assert.Zero(t, provider.calls)
}

func TestFailureLog_OverwritesPerKey(t *testing.T) {
	log := NewFailureLog(newFakeClock())
	log.Record("paris", "first reason")
	log.Record("paris", "second reason")

	failed := log.Snapshot()
	require.Len(t, failed, 1)
	assert.Equal(t, "second reason", failed[0].Reason)
}
