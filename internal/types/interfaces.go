package types

import (
	"context"
	"time"
)

// AlertStore is the persistence surface the evaluation engine consumes.
// The engine reads the full alert list each tick and conditionally writes
// back evaluation state. It never touches the rule fields.
type AlertStore interface {
	// ListAlerts returns every alert record.
	ListAlerts(ctx context.Context) ([]*Alert, error)
	// GetAlert returns the alert with the given id, or nil if absent.
	GetAlert(ctx context.Context, id string) (*Alert, error)
	// UpdateAlertState writes the engine-owned evaluation fields as one
	// atomic set. Returns nil, nil if the alert no longer exists.
	UpdateAlertState(ctx context.Context, id string, state AlertState) (*Alert, error)
}

// Notifier delivers a triggered-alert notification. The engine fires it
// exactly once per false-to-true transition and does not retry or dedupe
// beyond that; implementations are expected to tolerate duplicates.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert, currentValue float64) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
