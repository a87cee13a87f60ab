package formlogic

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config consolidates settings for the registry, evaluation and logging.
type Config struct {
	Registry   RegistryConfig   `json:"registry" koanf:"registry"`
	Evaluation EvaluationConfig `json:"evaluation" koanf:"evaluation"`
	Logging    LoggingConfig    `json:"logging" koanf:"logging"`
}

// RegistryConfig contains file registry settings
type RegistryConfig struct {
	// Directory holds *.json, *.yaml and *.yml form definitions.
	Directory string `json:"directory" koanf:"directory"`
	// ValidateOnLoad runs ValidateFormDefinition on every loaded file.
	ValidateOnLoad bool `json:"validateOnLoad" koanf:"validateonload"`
}

// EvaluationConfig contains evaluation settings
type EvaluationConfig struct {
	// EditMode shows every field and section regardless of conditions.
	EditMode bool `json:"editMode" koanf:"editmode"`
	// ValidateDefinitions validates ad hoc definition files before use.
	ValidateDefinitions bool `json:"validateDefinitions" koanf:"validatedefinitions"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `json:"level" koanf:"level"`
	Format      string `json:"format" koanf:"format"`
	Development bool   `json:"development" koanf:"development"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Directory:      "forms",
			ValidateOnLoad: true,
		},
		Evaluation: EvaluationConfig{
			EditMode:            false,
			ValidateDefinitions: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Registry.Directory == "" {
		return &ConfigError{Field: "registry.directory", Message: "must not be empty"}
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return &ConfigError{Field: "logging.format", Message: "must be json or console"}
	}

	return nil
}

// Build creates a logger from the logging settings.
func (l LoggingConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, &ConfigError{Field: "logging.level", Message: err.Error()}
	}
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = l.Format
	return cfg.Build()
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
