// Package config defines the process configuration. Configuration is loaded
// once at startup (Lambda cold start) and is immutable thereafter.
//
// Values are resolved from the OS environment, falling back to a .env file
// for local development. Any missing required value or invalid format fails
// startup.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weatheralert/internal/alerts"
	"weatheralert/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"weatheralert"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Forecast      ForecastConfig
	Scheduler     SchedulerConfig
	Alerts        AlertsConfig
	Observability ObservabilityConfig
	Local         LocalConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
// URL is required unless the local in-memory state store is selected.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// NotificationQueueURL is the FIFO queue notification requests go to.
	NotificationQueueURL string `envconfig:"SQS_NOTIFICATIONS" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ForecastConfig holds forecast provider settings.
type ForecastConfig struct {
	BaseURL string `envconfig:"FORECAST_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	// HTTPTimeout bounds a single upstream attempt; FETCH_TIMEOUT bounds the
	// whole fetch including retries.
	HTTPTimeout time.Duration `envconfig:"FORECAST_HTTP_TIMEOUT" default:"4s"`
	// CacheTTL of zero disables the Postgres forecast cache.
	CacheTTL time.Duration `envconfig:"FORECAST_CACHE_TTL" default:"30m" validate:"min=0"`
}

// SchedulerConfig holds cycle execution limits.
type SchedulerConfig struct {
	Workers         int           `envconfig:"EVAL_WORKERS" default:"8" validate:"min=1,max=256"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"5s"`
}

// AlertsConfig is the alert rule surface. See alerts.Config.
type AlertsConfig struct {
	SunnyCodes                  string        `envconfig:"SUNNY_CODES" default:"0,1"`
	SunnyMinWindowHours         int           `envconfig:"SUNNY_MIN_WINDOW_HOURS" default:"2"`
	SunnyLeadTime               time.Duration `envconfig:"SUNNY_LEAD_TIME" default:"1h"`
	DailySummaryLocalTime       string        `envconfig:"DAILY_SUMMARY_LOCAL_TIME" default:"08:00"`
	ForecastChangeLookaheadDays int           `envconfig:"FORECAST_CHANGE_LOOKAHEAD_DAYS" default:"1"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"WeatherAlert"`
}

// LocalConfig selects in-process collaborators for local runs.
type LocalConfig struct {
	// StateStore is "postgres" or "memory". Memory requires APP_ENV=local.
	StateStore string `envconfig:"STATE_STORE" default:"postgres" validate:"oneof=postgres memory"`
	// Dispatcher is "sqs" or "log".
	Dispatcher string `envconfig:"DISPATCHER" default:"sqs" validate:"oneof=sqs log"`
	// UsersFile seeds the in-memory user directory (JSON array).
	UsersFile string `envconfig:"LOCAL_USERS_FILE"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// UsesMemoryStore reports whether the in-memory state store is selected.
func (c *Config) UsesMemoryStore() bool {
	return c.Local.StateStore == "memory"
}

// Rules converts the alert settings into an alerts.Config.
func (c *Config) Rules() (alerts.Config, error) {
	codes, err := parseCodes(c.Alerts.SunnyCodes)
	if err != nil {
		return alerts.Config{}, err
	}
	at, err := alerts.ParseTimeOfDay(c.Alerts.DailySummaryLocalTime)
	if err != nil {
		return alerts.Config{}, fmt.Errorf("DAILY_SUMMARY_LOCAL_TIME: %w", err)
	}
	rc := alerts.Config{
		SunnyCodes:                  alerts.NewCodeSet(codes...),
		SunnyMinWindowHours:         c.Alerts.SunnyMinWindowHours,
		SunnyLeadTime:               c.Alerts.SunnyLeadTime,
		DailySummaryAt:              at,
		ForecastChangeLookaheadDays: c.Alerts.ForecastChangeLookaheadDays,
	}
	if err := rc.Validate(); err != nil {
		return alerts.Config{}, err
	}
	return rc, nil
}

func parseCodes(s string) ([]int, error) {
	var codes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil || code < 0 || code > 99 {
			return nil, fmt.Errorf("SUNNY_CODES: invalid weather code %q", part)
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("SUNNY_CODES: at least one code is required")
	}
	return codes, nil
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
