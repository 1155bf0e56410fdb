package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys,
// e.g. NANORELAY_GEMINI_API_KEY for gemini.api_key.
const EnvPrefix = "NANORELAY"

// Load loads and validates configuration from:
//  1. Default values
//  2. A .env file in the working directory, if present
//  3. The YAML file at path, if it exists
//  4. NANORELAY_* environment variables
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// readConfigFile reads the YAML file at path. A missing file is not an error;
// defaults and environment variables are used instead.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Configuration file not found, using defaults and environment", "path", path)
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.public_url", d.Server.PublicURL)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.temperature", d.Gemini.Temperature)
	v.SetDefault("gemini.top_k", d.Gemini.TopK)
	v.SetDefault("gemini.top_p", d.Gemini.TopP)
	v.SetDefault("gemini.max_output_tokens", d.Gemini.MaxOutputTokens)

	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.api_url", d.Telegram.APIURL)
	v.SetDefault("telegram.webhook_secret", d.Telegram.WebhookSecret)
	v.SetDefault("telegram.credential_precedence", d.Telegram.CredentialPrecedence)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.registration_ttl", d.Store.RegistrationTTL)

	for name, task := range d.Scheduler.Tasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}
