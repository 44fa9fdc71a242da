package config

import "time"

// Config holds all application configuration.
// It is constructed exactly once at startup and passed by reference to
// whichever role is selected; nothing re-reads the environment after that.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker"   validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Health   HealthConfig   `mapstructure:"health"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the connection settings for the relational store,
// which also serves as the task result backend.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// BrokerConfig contains the connection settings for the message broker
// that distributes background tasks to workers.
type BrokerConfig struct {
	Brokers []string `mapstructure:"brokers" validate:"required,min=1"`
	GroupID string   `mapstructure:"group_id" validate:"required"`
}

// WorkerConfig contains the role-selection flags and the background task
// processing settings. At most one of Beat, Flower, and Worker may be set;
// when none is set the process serves the API.
type WorkerConfig struct {
	Beat   bool `mapstructure:"beat"`
	Flower bool `mapstructure:"flower"`
	Worker bool `mapstructure:"worker"`

	Count int    `mapstructure:"count" validate:"required,gt=0"`
	Queue string `mapstructure:"queue" validate:"required"`

	MaxAttempts      int     `mapstructure:"max_attempts"        validate:"required,gt=0"`
	RetryBaseDelayMs int     `mapstructure:"retry_base_delay_ms" validate:"required,gt=0"`
	RetryMultiplier  float64 `mapstructure:"retry_multiplier"    validate:"required,gt=1"`
}

// HealthConfig contains settings for the dependency health aggregator.
type HealthConfig struct {
	ProbeTimeoutMs int `mapstructure:"probe_timeout_ms" validate:"required,gt=0"`
}

// ProbeTimeout returns the per-probe time budget as a duration.
func (c HealthConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// RetryBaseDelay returns the delay before the first task retry as a duration.
func (c WorkerConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}
