package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is prepended (with underscores) to every configuration key when
// read from the environment, e.g. server.port -> ATELIER_SERVER_PORT.
const envPrefix = "ATELIER"

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; only its malformedness is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every key so viper knows the full key
// set; AutomaticEnv only resolves keys it has seen.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_hours", 24)

	v.SetDefault("imagegen.provider", "gemini")
	v.SetDefault("imagegen.model_name", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("imagegen.concurrency_limit", 4)
	v.SetDefault("imagegen.max_attempts", 3)
	v.SetDefault("imagegen.backoff_base_millis", 500)
	v.SetDefault("imagegen.max_image_bytes", 2<<20)
	v.SetDefault("imagegen.batch_deadline_seconds", 120)
	v.SetDefault("imagegen.stage_image_limit", 4)
	v.SetDefault("imagegen.image_dir", "./data/images")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 64)
	v.SetDefault("task.stuck_task_age_minutes", 30)

	v.SetDefault("quota.tiers", map[string]any{
		"free": map[string]any{
			"monthly_credits":    30,
			"max_images_per_day": 10,
			"on_demand_allowed":  false,
		},
		"plus": map[string]any{
			"monthly_credits":    150,
			"max_images_per_day": 40,
			"on_demand_allowed":  true,
		},
		"pro": map[string]any{
			"monthly_credits":    500,
			"max_images_per_day": 0,
			"on_demand_allowed":  true,
		},
	})
}

// bindEnvKeys binds the keys that have no default (secrets and the database
// URL) so AutomaticEnv can resolve them too.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"imagegen.gemini_api_key",
		"imagegen.openai_api_key",
	} {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key)
	}
}
