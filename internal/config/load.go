package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ErrConflictingRoles is returned when more than one role flag is set.
// A single container must play exactly one role; starting both a scheduler
// and a worker from the same flags would duplicate scheduled work.
var ErrConflictingRoles = errors.New("conflicting role flags: at most one of beat, flower, worker may be set")

// Load reads configuration from environment variables (BASE_ prefix) and an
// optional config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails; callers must treat any error as fatal and
// exit before starting any subsystem.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		// Environment values arrive as strings; convert them to the
		// typed fields (ints, bools, float64) during decoding.
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural constraints (required fields, positive worker
// count) and the mutual exclusion of the role flags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	set := 0
	for _, flag := range []bool{c.Worker.Beat, c.Worker.Flower, c.Worker.Worker} {
		if flag {
			set++
		}
	}
	if set > 1 {
		return ErrConflictingRoles
	}

	return nil
}

// setDefaults registers default values for every known key so viper can
// resolve the corresponding environment variables.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("broker.brokers", []string{"localhost:9092"})
	v.SetDefault("broker.group_id", "base-api-workers")

	v.SetDefault("worker.beat", false)
	v.SetDefault("worker.flower", false)
	v.SetDefault("worker.worker", false)
	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.queue", "default")
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.retry_base_delay_ms", 500)
	v.SetDefault("worker.retry_multiplier", 2.0)

	v.SetDefault("health.probe_timeout_ms", 3000)
}
