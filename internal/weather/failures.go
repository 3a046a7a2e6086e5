package weather

import (
	"sort"
	"sync"

	"weatherwatch/internal/types"
)

// FailureLog records the most recent fetch failure per location key.
// A record is created or overwritten on fetch failure and cleared on the next
// successful fetch for that key. It exists purely for operational
// inspection; a recorded failure never blocks a retry.
type FailureLog struct {
	mu      sync.RWMutex
	entries map[string]types.FailedLocation
	clock   types.Clock
}

// NewFailureLog creates an empty FailureLog. A nil clock falls back to the
// real clock.
func NewFailureLog(clock types.Clock) *FailureLog {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &FailureLog{
		entries: make(map[string]types.FailedLocation),
		clock:   clock,
	}
}

// Record stores (or overwrites) the failure reason for a location key.
func (f *FailureLog) Record(key, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = types.FailedLocation{
		Key:    key,
		At:     f.clock.Now(),
		Reason: reason,
	}
}

// Clear removes the failure record for key, if any.
func (f *FailureLog) Clear(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

// Snapshot returns all current failure records, sorted by key.
func (f *FailureLog) Snapshot() []types.FailedLocation {
	f.mu.RLock()
	failed := make([]types.FailedLocation, 0, len(f.entries))
	for _, entry := range f.entries {
		failed = append(failed, entry)
	}
	f.mu.RUnlock()

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].Key < failed[j].Key
	})
	return failed
}
