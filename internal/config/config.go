package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	ImageGen ImageGenConfig `mapstructure:"imagegen" validate:"required"`
	Quota    QuotaConfig    `mapstructure:"quota"    validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"           validate:"required,min=32"`
	TokenLifetimeHours int    `mapstructure:"token_lifetime_hours" validate:"required,gt=0"`
}

// ImageGenConfig contains all image-generation pipeline settings.
type ImageGenConfig struct {
	// Provider selects the external image service backend.
	Provider string `mapstructure:"provider" validate:"required,oneof=gemini openai"`

	// GeminiAPIKey is required when Provider is "gemini".
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`

	// OpenAIAPIKey is required when Provider is "openai".
	OpenAIAPIKey string `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`

	// ModelName is the provider-specific image model identifier.
	ModelName string `mapstructure:"model_name" validate:"required"`

	// ConcurrencyLimit bounds in-flight external calls per batch.
	ConcurrencyLimit int `mapstructure:"concurrency_limit" validate:"required,gt=0,lte=32"`

	// MaxAttempts is the per-request retry budget, counting the first try.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0,lte=10"`

	// BackoffBaseMillis is the base delay for exponential retry backoff.
	BackoffBaseMillis int `mapstructure:"backoff_base_millis" validate:"required,gt=0"`

	// MaxImageBytes caps stored image size; larger payloads are re-encoded.
	MaxImageBytes int `mapstructure:"max_image_bytes" validate:"required,gt=0"`

	// BatchDeadlineSeconds bounds how long one batch may run.
	BatchDeadlineSeconds int `mapstructure:"batch_deadline_seconds" validate:"required,gt=0"`

	// StageImageLimit caps how many steps of an artifact get an image.
	StageImageLimit int `mapstructure:"stage_image_limit" validate:"required,gt=0"`

	// ImageDir is where the filesystem image store writes image bytes.
	ImageDir string `mapstructure:"image_dir" validate:"required"`
}

// TierLimitsConfig holds the configured limits for one quota tier.
type TierLimitsConfig struct {
	MonthlyCredits  int  `mapstructure:"monthly_credits"    validate:"gte=0"`
	MaxImagesPerDay int  `mapstructure:"max_images_per_day" validate:"gte=0"`
	OnDemandAllowed bool `mapstructure:"on_demand_allowed"`
}

// QuotaConfig contains the tier -> limits table.
type QuotaConfig struct {
	Tiers map[string]TierLimitsConfig `mapstructure:"tiers" validate:"required,min=1"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	// WorkerCount determines how many tasks may run concurrently.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=16"`

	// QueueSize bounds the in-memory task queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// StuckTaskAgeMinutes is how long a task may sit in the processing
	// state before the monitor resets it.
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}
