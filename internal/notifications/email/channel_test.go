package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatch/internal/external"
	"weatherwatch/internal/types"
)

type mockSender struct {
	sent   []external.EmailMessage
	sendFn func(ctx context.Context, msg external.EmailMessage) error
}

func (m *mockSender) Send(ctx context.Context, msg external.EmailMessage) error {
	m.sent = append(m.sent, msg)
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

func triggeredAlert() *types.Alert {
	return &types.Alert{
		ID:               "a1",
		Name:             "Paris heat",
		Location:         types.LocationSpec{City: "Paris"},
		Parameter:        types.ParamTemperature,
		Condition:        types.OpGreaterThan,
		Threshold:        30,
		UserEmail:        "user@example.com",
		ResolvedLocation: "Paris, FR",
	}
}

func TestNotify_SendsEmail(t *testing.T) {
	sender := &mockSender{}
	channel := NewChannel(ChannelConfig{
		Sender:       sender,
		DashboardURL: "https://dash.example.com/",
	})

	err := channel.Notify(context.Background(), triggeredAlert(), 32.4)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "user@example.com", msg.To)
	assert.Equal(t, `Weather Alert: Paris heat`, msg.Subject)
	assert.Contains(t, msg.Body, `Alert "Paris heat" has been triggered!`)
	assert.Contains(t, msg.Body, "Location: Paris, FR")
	assert.Contains(t, msg.Body, "Condition: temperature > 30")
	assert.Contains(t, msg.Body, "Current value: 32.4")
	assert.Contains(t, msg.Body, "https://dash.example.com/alerts")
}

func TestNotify_SkipsWithoutRecipient(t *testing.T) {
	sender := &mockSender{}
	channel := NewChannel(ChannelConfig{Sender: sender})

	alert := triggeredAlert()
	alert.UserEmail = ""

	err := channel.Notify(context.Background(), alert, 32.4)
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotify_SwallowsDeliveryFailure(t *testing.T) {
	sender := &mockSender{sendFn: func(ctx context.Context, msg external.EmailMessage) error {
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider, "provider down", nil)
	}}
	channel := NewChannel(ChannelConfig{Sender: sender})

	err := channel.Notify(context.Background(), triggeredAlert(), 32.4)
	assert.NoError(t, err)
}

func TestRenderBody_FallbackLocations(t *testing.T) {
	channel := NewChannel(ChannelConfig{Sender: &mockSender{}})

	alert := triggeredAlert()
	alert.ResolvedLocation = ""
	body := channel.renderBody(alert, 31)
	assert.Contains(t, body, "Location: Paris")

	alert.Location = types.LocationSpec{Coordinates: &types.Coordinates{Lat: 48.85, Lon: 2.35}}
	body = channel.renderBody(alert, 31)
	assert.Contains(t, body, "Location: 48.85, 2.35")
}
