package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Server defaults
	DefaultServerAddr              = ":3000"
	DefaultServerReadHeaderTimeout = 30 * time.Second
	DefaultServerShutdownTimeout   = 10 * time.Second

	// Gemini defaults
	DefaultGeminiModel           = "gemini-2.0-flash"
	DefaultGeminiTemperature     = 0.7
	DefaultGeminiTopK            = 40
	DefaultGeminiTopP            = 0.95
	DefaultGeminiMaxOutputTokens = 1024

	// Telegram defaults
	DefaultTelegramAPIURL       = "https://api.telegram.org"
	DefaultCredentialPrecedence = PrecedenceRegistration

	// Store defaults
	DefaultStoreDriver          = StoreSQLite
	DefaultStorePath            = "nanorelay.db"
	DefaultStoreRegistrationTTL = 30 * 24 * time.Hour

	// Scheduler task names
	TaskRegistrationExpiry = "registration_expiry"
	TaskStoreMaintenance   = "store_maintenance"
)

// DefaultCORSOrigins allows any origin, matching the public chat UI deployment.
var DefaultCORSOrigins = []string{"*"}

// DefaultTasks is the scheduled task table used when none is configured.
var DefaultTasks = map[string]TaskConfig{
	TaskRegistrationExpiry: {Enabled: true, Schedule: "0 0 * * * *"},
	TaskStoreMaintenance:   {Enabled: true, Schedule: "0 30 3 * * *"},
}

// Defaults returns a configuration populated only with default values.
func Defaults() *Config {
	tasks := make(map[string]TaskConfig, len(DefaultTasks))
	for name, t := range DefaultTasks {
		tasks[name] = t
	}

	return &Config{
		Log: LogConfig{
			Level: DefaultLogLevel,
			JSON:  DefaultLogJSON,
		},
		Server: ServerConfig{
			Addr:              DefaultServerAddr,
			CORSOrigins:       append([]string(nil), DefaultCORSOrigins...),
			ReadHeaderTimeout: DefaultServerReadHeaderTimeout,
			ShutdownTimeout:   DefaultServerShutdownTimeout,
		},
		Gemini: GeminiConfig{
			Model:           DefaultGeminiModel,
			Temperature:     DefaultGeminiTemperature,
			TopK:            DefaultGeminiTopK,
			TopP:            DefaultGeminiTopP,
			MaxOutputTokens: DefaultGeminiMaxOutputTokens,
		},
		Telegram: TelegramConfig{
			APIURL:               DefaultTelegramAPIURL,
			CredentialPrecedence: DefaultCredentialPrecedence,
		},
		Store: StoreConfig{
			Driver:          DefaultStoreDriver,
			Path:            DefaultStorePath,
			RegistrationTTL: DefaultStoreRegistrationTTL,
		},
		Scheduler: SchedulerConfig{
			Tasks: tasks,
		},
	}
}
