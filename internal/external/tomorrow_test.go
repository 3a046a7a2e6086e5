package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatch/internal/types"
)

const realtimeBody = `{
	"data": {
		"time": "2025-06-01T12:00:00Z",
		"values": {"temperature": 22.7, "windSpeed": 4.1, "precipitation": 0.3, "humidity": 61}
	},
	"location": {"lat": 48.8566, "lon": 2.3522, "name": "Paris", "type": "city", "country": "FR"}
}`

func newTestClient(serverURL string) *TomorrowClient {
	return NewTomorrowClient(
		&http.Client{Timeout: 5 * time.Second},
		TomorrowClientConfig{APIKey: "test-key", BaseURL: serverURL},
		WithSleepFunc(func(time.Duration) {}),
	)
}

func TestCurrentConditions_ParsesRealtimePayload(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"location": r.URL.Query().Get("location"),
			"units":    r.URL.Query().Get("units"),
			"apikey":   r.URL.Query().Get("apikey"),
		}
		assert.Equal(t, "/weather/realtime", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(realtimeBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reading, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Paris"})
	require.NoError(t, err)

	assert.Equal(t, "Paris", gotQuery["location"])
	assert.Equal(t, "metric", gotQuery["units"])
	assert.Equal(t, "test-key", gotQuery["apikey"])

	assert.Equal(t, 22.7, reading.Temperature)
	assert.Equal(t, 4.1, reading.WindSpeed)
	assert.Equal(t, 0.3, reading.Precipitation)
	assert.Equal(t, 61.0, reading.Humidity)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), reading.Timestamp)
	assert.Equal(t, "Paris", reading.Location.Name)
	assert.Equal(t, "city", reading.Location.Type)
	assert.Equal(t, "FR", reading.Location.Country)
}

func TestCurrentConditions_LocationParamForms(t *testing.T) {
	var gotLocation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocation = r.URL.Query().Get("location")
		_, _ = w.Write([]byte(realtimeBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CurrentConditions(context.Background(),
		types.LocationSpec{Coordinates: &types.Coordinates{Lat: 48.8566, Lon: 2.3522}})
	require.NoError(t, err)
	assert.Equal(t, "48.8566,2.3522", gotLocation)

	// Commas in place names are stripped before sending.
	_, err = client.CurrentConditions(context.Background(),
		types.LocationSpec{City: "New York, NY"})
	require.NoError(t, err)
	assert.Equal(t, "New York  NY", gotLocation)
}

func TestCurrentConditions_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode types.ErrorCode
	}{
		{"401 maps to unauthorized", http.StatusUnauthorized, `{}`, types.ErrCodeUpstreamUnauthorized},
		{"403 maps to unauthorized", http.StatusForbidden, `{}`, types.ErrCodeUpstreamUnauthorized},
		{
			"invalid query code maps to location not found",
			http.StatusBadRequest,
			`{"code": 400001, "type": "Invalid Query Parameters", "message": "invalid location"}`,
			types.ErrCodeUpstreamLocationNotFound,
		},
		{
			"invalid query type maps to location not found",
			http.StatusBadRequest,
			`{"type": "Invalid Query Parameters", "message": "bad location"}`,
			types.ErrCodeUpstreamLocationNotFound,
		},
		{
			"other 400 maps to unreachable",
			http.StatusBadRequest,
			`{"code": 400002, "message": "missing field"}`,
			types.ErrCodeUpstreamUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Nowhere"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.CodeOf(err))
		})
	}
}

func TestCurrentConditions_RateLimitRetriedThenClassified(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Paris"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, types.CodeOf(err))
	// One initial attempt plus the policy's retries.
	assert.Equal(t, 1+DefaultRetryPolicy().MaxRetries, attempts)
}

func TestCurrentConditions_ServerErrorRetriedThenUnreachable(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Paris"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamUnreachable, types.CodeOf(err))
	assert.Equal(t, 1+DefaultRetryPolicy().MaxRetries, attempts)
}

func TestCurrentConditions_RecoveryOnRetry(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(realtimeBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reading, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, 22.7, reading.Temperature)
	assert.Equal(t, 2, attempts)
}

func TestCurrentConditions_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	_, err := client.CurrentConditions(context.Background(), types.LocationSpec{City: "Paris"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamUnreachable, types.CodeOf(err))
}

func TestEmailClient_Send(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		gotBody = body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewEmailClient(
		&http.Client{Timeout: 5 * time.Second},
		EmailClientConfig{
			APIKey:      "sg-key",
			BaseURL:     server.URL,
			FromAddress: "alerts@example.com",
			FromName:    "Weather Alerts",
		},
		WithSleepFunc(func(time.Duration) {}),
	)

	err := client.Send(context.Background(), EmailMessage{
		To:      "user@example.com",
		Subject: "Alert triggered",
		Body:    "temperature is 25",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Contains(t, string(gotBody), `"user@example.com"`)
	assert.Contains(t, string(gotBody), `"alerts@example.com"`)
}

func TestEmailClient_SendProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad recipient"}]}`))
	}))
	defer server.Close()

	client := NewEmailClient(
		&http.Client{Timeout: 5 * time.Second},
		EmailClientConfig{APIKey: "sg-key", BaseURL: server.URL, FromAddress: "alerts@example.com"},
		WithSleepFunc(func(time.Duration) {}),
	)

	err := client.Send(context.Background(), EmailMessage{To: "user@example.com"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamEmailProvider, types.CodeOf(err))
}
