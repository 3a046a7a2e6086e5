package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weatherwatch/internal/types"
)

// realtimePath is the provider's current-conditions endpoint.
const realtimePath = "/weather/realtime"

// TomorrowClientConfig holds the configuration for creating a TomorrowClient.
type TomorrowClientConfig struct {
	APIKey  string
	BaseURL string // e.g. https://api.tomorrow.io/v4
}

// TomorrowClient implements the weather provider contract against the
// Tomorrow.io realtime API. It classifies provider failures into the closed
// upstream error codes:
//
//	401/403                      -> upstream_unauthorized
//	429                          -> upstream_rate_limited
//	"invalid query parameters"   -> upstream_location_not_found
//	anything else                -> upstream_unreachable
type TomorrowClient struct {
	base   *BaseClient
	apiKey string
	apiURL string
}

// NewTomorrowClient creates a TomorrowClient using the given http client.
func NewTomorrowClient(httpClient *http.Client, cfg TomorrowClientConfig, opts ...BaseClientOption) *TomorrowClient {
	return &TomorrowClient{
		base:   NewBaseClient(httpClient, "tomorrow", DefaultRetryPolicy(), "weatherwatch/1.0", opts...),
		apiKey: cfg.APIKey,
		apiURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// realtimeResponse mirrors the provider's realtime payload.
type realtimeResponse struct {
	Data struct {
		Time   time.Time `json:"time"`
		Values struct {
			Temperature   float64 `json:"temperature"`
			WindSpeed     float64 `json:"windSpeed"`
			Precipitation float64 `json:"precipitation"`
			Humidity      float64 `json:"humidity"`
		} `json:"values"`
	} `json:"data"`
	Location struct {
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Name    string  `json:"name"`
		Type    string  `json:"type"`
		Country string  `json:"country"`
	} `json:"location"`
}

// providerError mirrors the provider's structured error body.
type providerError struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CurrentConditions queries the provider for the current weather at the given
// location spec and maps the payload into a domain Reading.
func (c *TomorrowClient) CurrentConditions(ctx context.Context, spec types.LocationSpec) (types.Reading, error) {
	values := url.Values{}
	values.Set("location", locationParam(spec))
	values.Set("units", "metric")
	values.Set("apikey", c.apiKey)

	endpoint := fmt.Sprintf("%s%s?%s", c.apiURL, realtimePath, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Reading{}, types.NewAppError(types.ErrCodeInternalUnexpected,
			"building weather request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		// BaseClient already classified transport failures, 429s and 5xx.
		return types.Reading{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Reading{}, c.classifyStatus(resp)
	}

	var payload realtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.Reading{}, types.NewAppError(types.ErrCodeUpstreamUnreachable,
			"decoding weather provider response", err)
	}

	ts := payload.Data.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return types.Reading{
		Temperature:   payload.Data.Values.Temperature,
		WindSpeed:     payload.Data.Values.WindSpeed,
		Precipitation: payload.Data.Values.Precipitation,
		Humidity:      payload.Data.Values.Humidity,
		Timestamp:     ts,
		Location: types.LocationMeta{
			Name:    payload.Location.Name,
			Type:    payload.Location.Type,
			Country: payload.Location.Country,
			Lat:     payload.Location.Lat,
			Lon:     payload.Location.Lon,
		},
	}, nil
}

// classifyStatus maps non-200 provider responses to the closed error codes.
// The body is read (bounded) to surface the provider's message to operators
// and to detect the "invalid query parameters" rejection that signals an
// unknown location.
func (c *TomorrowClient) classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var perr providerError
	_ = json.Unmarshal(body, &perr)
	detail := perr.Message
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewAppError(types.ErrCodeUpstreamUnauthorized,
			"weather provider rejected the API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited,
			"weather provider rate limit exceeded", nil)
	case isInvalidQuery(perr):
		return types.NewAppError(types.ErrCodeUpstreamLocationNotFound,
			fmt.Sprintf("weather provider could not resolve the location: %s", detail), nil)
	default:
		return types.NewAppError(types.ErrCodeUpstreamUnreachable,
			fmt.Sprintf("weather provider returned %d: %s", resp.StatusCode, detail), nil)
	}
}

// invalidQueryCode is the provider's error code for unresolvable query
// parameters, which for the realtime endpoint means the location itself.
const invalidQueryCode = 400001

// isInvalidQuery reports whether the structured error body identifies an
// invalid query parameter rejection.
func isInvalidQuery(perr providerError) bool {
	if perr.Code == invalidQueryCode {
		return true
	}
	return strings.EqualFold(perr.Type, "Invalid Query Parameters")
}

// locationParam renders the provider's location query parameter: a "lat,lon"
// pair or the raw place name (commas stripped, per provider quirks with
// "City, ST" inputs).
func locationParam(spec types.LocationSpec) string {
	if spec.HasCoordinates() {
		return fmt.Sprintf("%g,%g", spec.Coordinates.Lat, spec.Coordinates.Lon)
	}
	city := strings.TrimSpace(strings.ReplaceAll(spec.City, ",", " "))
	return city
}
