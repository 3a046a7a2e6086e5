// Package config defines the global configuration structure for the
// weatherwatch service. Configuration is loaded once at process start and is
// immutable thereafter. It follows 12-Factor principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails the process immediately
// on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct for the service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Engine   EngineConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// WeatherConfig holds weather provider credentials and cache tuning.
type WeatherConfig struct {
	APIKey  string        `envconfig:"WEATHER_API_KEY" validate:"required"`
	BaseURL string        `envconfig:"WEATHER_API_URL" default:"https://api.tomorrow.io/v4"`
	Timeout time.Duration `envconfig:"WEATHER_API_TIMEOUT" default:"10s"`
	// CacheTTL is the freshness window for cached readings. A cache hit
	// within the TTL short-circuits the provider call entirely.
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"5m"`
}

// EngineConfig holds evaluation engine tuning parameters.
type EngineConfig struct {
	// Interval is the tick period of the evaluation scheduler.
	Interval time.Duration `envconfig:"ALERT_CHECK_INTERVAL" default:"5m"`
	// FetchConcurrency bounds the number of concurrent per-location fetches
	// within a tick.
	FetchConcurrency int `envconfig:"FETCH_CONCURRENCY" default:"8" validate:"min=1"`
}

// EmailConfig holds the notification email channel settings.
type EmailConfig struct {
	Enabled     bool          `envconfig:"EMAIL_ENABLED" default:"true"`
	APIKey      string        `envconfig:"EMAIL_API_KEY"`
	BaseURL     string        `envconfig:"EMAIL_API_URL" default:"https://api.sendgrid.com"`
	FromAddress string        `envconfig:"EMAIL_FROM_ADDRESS" default:"alerts@weatherwatch.local"`
	FromName    string        `envconfig:"EMAIL_FROM_NAME" default:"Weather Alerts"`
	Timeout     time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
	// DashboardURL is linked from notification emails so recipients can
	// manage their alerts.
	DashboardURL string `envconfig:"DASHBOARD_URL" default:"http://localhost:3000"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
