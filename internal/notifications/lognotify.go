// Package notifications provides delivery channels for triggered alerts.
package notifications

import (
	"context"
	"log/slog"

	"weatherwatch/internal/types"
)

// LogNotifier records triggered alerts to the structured log without
// delivering anything. Used when email delivery is disabled, so trigger
// transitions remain observable in environments without provider
// credentials.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements types.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, alert *types.Alert, currentValue float64) error {
	n.logger.InfoContext(ctx, "alert triggered (delivery disabled)",
		"alert_id", alert.ID,
		"alert_name", alert.Name,
		"parameter", alert.Parameter,
		"condition", alert.Condition,
		"threshold", alert.Threshold,
		"current_value", currentValue,
		"recipient", alert.UserEmail,
	)
	return nil
}
