// Package config provides configuration loading, validation, and management
// for nanorelay. It handles reading from YAML files and environment
// variables, setting default values, and validating configuration parameters.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration is returned when configuration cannot be loaded or is invalid.
var ErrConfiguration = errors.New("configuration error")

// Credential precedence rules for bot registrations.
const (
	// PrecedenceRegistration prefers the AI key stored with the bot registration.
	PrecedenceRegistration = "registration"
	// PrecedenceConfig prefers the AI key from the service configuration.
	PrecedenceConfig = "config"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config defines the application configuration parameters for all components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	// PublicURL is the externally reachable base URL used to build default webhook URLs.
	PublicURL   string   `mapstructure:"public_url"  validate:"omitempty,url"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// ReadHeaderTimeout bounds how long a client may take to send request headers.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    validate:"min=0"`
}

// GeminiConfig holds AI provider settings.
type GeminiConfig struct {
	// APIKey is the default credential. Empty means the service is not configured
	// unless a caller or bot registration supplies one.
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"             validate:"required"`
	BaseURL         string  `mapstructure:"base_url"          validate:"omitempty,url"`
	Temperature     float32 `mapstructure:"temperature"       validate:"min=0,max=2"`
	TopK            float32 `mapstructure:"top_k"             validate:"min=1"`
	TopP            float32 `mapstructure:"top_p"             validate:"min=0,max=1"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens" validate:"min=1"`
}

// TelegramConfig holds messaging provider settings.
type TelegramConfig struct {
	// Token is an optional default bot whose webhook is accepted without registration.
	Token                string `mapstructure:"token"`
	APIURL               string `mapstructure:"api_url"               validate:"required,url"`
	WebhookSecret        string `mapstructure:"webhook_secret"`
	CredentialPrecedence string `mapstructure:"credential_precedence" validate:"required,oneof=registration config"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"           validate:"required,oneof=memory sqlite redis"`
	Path            string        `mapstructure:"path"             validate:"required_if=Driver sqlite"`
	RedisAddr       string        `mapstructure:"redis_addr"       validate:"required_if=Driver redis"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"         validate:"min=0"`
	RegistrationTTL time.Duration `mapstructure:"registration_ttl" validate:"min=0"`
}

// SchedulerConfig holds the scheduled task table, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
