package config

import (
	"os"
	"strconv"
	"time"

	"trialdesk/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Demo      DemoConfig
	Session   SessionConfig
	Profiling ProfilingConfig
	Logging   LoggingConfig
}

// DatabaseConfig holds database connection settings. An empty URL keeps
// sessions in memory.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether Postgres persistence is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port               string
	GinMode            string
	MaxConcurrentTasks int
	SubmitRatePerSec   float64
	SubmitBurst        int
	ShutdownTimeout    time.Duration
}

// DemoConfig holds the simulated latency of the placeholder model and search
type DemoConfig struct {
	StageDelay      time.Duration
	SuggestionDelay time.Duration
}

// SessionConfig holds session lifetime settings
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// LoggingConfig holds the leveled logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:  *loadDatabaseConfig(),
		Server:    *loadServerConfig(),
		Demo:      *loadDemoConfig(),
		Session:   *loadSessionConfig(),
		Profiling: *loadProfilingConfig(),
		Logging:   LoggingConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			GinMode:            "debug",
			MaxConcurrentTasks: 16,
			SubmitRatePerSec:   2,
			SubmitBurst:        5,
			ShutdownTimeout:    10 * time.Second,
		},
		Demo: DemoConfig{
			StageDelay:      2 * time.Second,
			SuggestionDelay: time.Second,
		},
		Session: SessionConfig{
			TTL:             12 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Profiling: ProfilingConfig{
			Port: "6060",
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL: getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadServerConfig() *ServerConfig {
	defaults := Default().Server
	return &ServerConfig{
		Port:               getEnvOrDefault("PORT", defaults.Port),
		GinMode:            getEnvOrDefault("GIN_MODE", defaults.GinMode),
		MaxConcurrentTasks: getEnvIntOrDefault("MAX_CONCURRENT_TASKS", defaults.MaxConcurrentTasks),
		SubmitRatePerSec:   getEnvFloatOrDefault("SUBMIT_RATE_PER_SEC", defaults.SubmitRatePerSec),
		SubmitBurst:        getEnvIntOrDefault("SUBMIT_BURST", defaults.SubmitBurst),
		ShutdownTimeout:    getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", defaults.ShutdownTimeout),
	}
}

func loadDemoConfig() *DemoConfig {
	defaults := Default().Demo
	return &DemoConfig{
		StageDelay:      getEnvDurationOrDefault("STAGE_DELAY", defaults.StageDelay),
		SuggestionDelay: getEnvDurationOrDefault("SUGGESTION_DELAY", defaults.SuggestionDelay),
	}
}

func loadSessionConfig() *SessionConfig {
	defaults := Default().Session
	return &SessionConfig{
		TTL:             getEnvDurationOrDefault("SESSION_TTL", defaults.TTL),
		CleanupInterval: getEnvDurationOrDefault("SESSION_CLEANUP_INTERVAL", defaults.CleanupInterval),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Server.MaxConcurrentTasks < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT_TASKS must be at least 1")
	}
	if config.Server.SubmitRatePerSec <= 0 || config.Server.SubmitBurst < 1 {
		return errors.ConfigInvalid("submit rate and burst must be positive")
	}
	if config.Demo.StageDelay < 0 || config.Demo.SuggestionDelay < 0 {
		return errors.ConfigInvalid("stage delays cannot be negative")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.Session.CleanupInterval <= 0 {
		return errors.ConfigInvalid("SESSION_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
