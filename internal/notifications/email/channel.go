// Package email implements the triggered-alert email notification channel.
// The channel is fire-and-forget from the engine's perspective: delivery
// failures are logged and swallowed, never retried here, and never allowed
// to fail the evaluation tick.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"weatherwatch/internal/external"
	"weatherwatch/internal/types"
)

// ChannelConfig holds the configuration for creating a Channel.
type ChannelConfig struct {
	Sender       external.EmailSender
	DashboardURL string
	Logger       *slog.Logger
}

// Channel delivers triggered-alert emails. It implements types.Notifier.
type Channel struct {
	sender       external.EmailSender
	dashboardURL string
	logger       *slog.Logger
}

// NewChannel creates an email notification channel.
func NewChannel(cfg ChannelConfig) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		sender:       cfg.Sender,
		dashboardURL: strings.TrimRight(cfg.DashboardURL, "/"),
		logger:       logger,
	}
}

// Notify sends a single email for a newly triggered alert. Alerts without a
// recipient address are skipped with a warning. Delivery errors are logged
// and not returned: the engine has already persisted the trigger, and the
// channel gives no delivery guarantees.
func (c *Channel) Notify(ctx context.Context, alert *types.Alert, currentValue float64) error {
	if alert.UserEmail == "" {
		c.logger.WarnContext(ctx, "alert has no recipient address; skipping notification",
			"alert_id", alert.ID,
		)
		return nil
	}

	msg := external.EmailMessage{
		To:      alert.UserEmail,
		Subject: fmt.Sprintf("Weather Alert: %s", alert.Name),
		Body:    c.renderBody(alert, currentValue),
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to deliver notification email",
			"alert_id", alert.ID,
			"code", types.CodeOf(err),
			"error", err,
		)
		return nil
	}

	c.logger.InfoContext(ctx, "notification sent",
		"alert_id", alert.ID,
		"recipient", alert.UserEmail,
	)
	return nil
}

// renderBody builds the plain-text email body.
func (c *Channel) renderBody(alert *types.Alert, currentValue float64) string {
	loc := alert.ResolvedLocation
	if loc == "" {
		if alert.Location.HasCity() {
			loc = alert.Location.City
		} else if alert.Location.HasCoordinates() {
			loc = fmt.Sprintf("%g, %g", alert.Location.Coordinates.Lat, alert.Location.Coordinates.Lon)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alert %q has been triggered!\n\n", alert.Name)
	fmt.Fprintf(&b, "Location: %s\n", loc)
	fmt.Fprintf(&b, "Condition: %s %s %g\n", alert.Parameter, alert.Condition, alert.Threshold)
	fmt.Fprintf(&b, "Current value: %g\n", currentValue)
	if c.dashboardURL != "" {
		fmt.Fprintf(&b, "\nYou can manage your alerts at: %s/alerts\n", c.dashboardURL)
	}
	return b.String()
}
