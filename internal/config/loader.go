// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator, then the
//     cross-field rules struct tags cannot express.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// localEnv is the APP_ENV value that permits in-process collaborators.
const localEnv = "local"

// LoadConfig loads and validates the configuration from the environment and
// an optional .env file in the working directory.
func LoadConfig() (*Config, error) {
	return loadConfig(".env")
}

// loadConfig is LoadConfig with explicit dotenv paths, for tests.
func loadConfig(dotenvPaths ...string) (*Config, error) {
	time.Local = time.UTC

	// Missing files are fine; existing variables are never overridden.
	for _, p := range dotenvPaths {
		_ = godotenv.Load(p)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if err := cfg.validateDependencies(); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// validateDependencies checks settings that depend on each other.
func (c *Config) validateDependencies() error {
	var errs []error
	if c.UsesMemoryStore() {
		if c.Environment != localEnv {
			errs = append(errs, errors.New("STATE_STORE=memory is only allowed with APP_ENV=local"))
		}
	} else if !c.Database.URL.IsSet() {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Local.Dispatcher == "sqs" && c.AWS.NotificationQueueURL == "" {
		errs = append(errs, errors.New("SQS_NOTIFICATIONS is required when DISPATCHER=sqs"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if _, err := c.Rules(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
