package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"weatherwatch/internal/types"
)

// EmailMessage is a single plain-text email to be delivered by the provider.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailSender delivers a single email message. Implemented by EmailClient and
// by test doubles in the notification channel tests.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailClientConfig holds the configuration for creating an EmailClient.
type EmailClientConfig struct {
	APIKey      string
	BaseURL     string // e.g. https://api.sendgrid.com
	FromAddress string
	FromName    string
}

// EmailClient delivers notification emails through the SendGrid v3 Mail Send
// API via BaseClient, inheriting the shared resilience behavior (circuit
// breaker, retries, upstream error mapping).
type EmailClient struct {
	base *BaseClient
	cfg  EmailClientConfig
}

// NewEmailClient creates an EmailClient using the given http client.
func NewEmailClient(httpClient *http.Client, cfg EmailClientConfig, opts ...BaseClientOption) *EmailClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &EmailClient{
		base: NewBaseClient(httpClient, "email", DefaultRetryPolicy(), "weatherwatch/1.0", opts...),
		cfg:  cfg,
	}
}

// mailPayload is the SendGrid v3 mail/send request body, reduced to the
// plain-text single-recipient shape this service needs.
type mailPayload struct {
	Personalizations []struct {
		To []mailAddress `json:"to"`
	} `json:"personalizations"`
	From    mailAddress   `json:"from"`
	Subject string        `json:"subject"`
	Content []mailContent `json:"content"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send transmits a plain-text email. 429 and 5xx are retried by BaseClient;
// any remaining non-2xx response maps to upstream_email_provider_unavailable.
func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) error {
	payload := mailPayload{
		From:    mailAddress{Email: c.cfg.FromAddress, Name: c.cfg.FromName},
		Subject: msg.Subject,
		Content: []mailContent{{Type: "text/plain", Value: msg.Body}},
	}
	payload.Personalizations = make([]struct {
		To []mailAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []mailAddress{{Email: msg.To}}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"marshaling mail payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"building mail send request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	return nil
}
