package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend         string `mapstructure:"backend"` // memory, file or sqlite
	Path            string `mapstructure:"path"`
	FilePermissions string `mapstructure:"file_permissions"` // octal, e.g. "0600"
	DirPermissions  string `mapstructure:"dir_permissions"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig holds dashboard display configuration
type DashboardConfig struct {
	TopN int `mapstructure:"top_n"`
}

// TelegramConfig holds Telegram digest configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// Load reads configuration from file and environment variables. An empty
// path skips the file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. SENSE_STORAGE_BACKEND
	v.SetEnvPrefix("SENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "./data/sense.json")
	v.SetDefault("storage.file_permissions", "0600")
	v.SetDefault("storage.dir_permissions", "0700")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Dashboard defaults
	v.SetDefault("dashboard.top_n", 3)

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Storage config
	validBackends := map[string]bool{"memory": true, "file": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		return fmt.Errorf("storage.backend must be one of: memory, file, sqlite")
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
	}
	if _, err := parseMode(c.Storage.FilePermissions); err != nil {
		return fmt.Errorf("storage.file_permissions: %w", err)
	}
	if _, err := parseMode(c.Storage.DirPermissions); err != nil {
		return fmt.Errorf("storage.dir_permissions: %w", err)
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Validate Dashboard config
	if c.Dashboard.TopN < 1 {
		return fmt.Errorf("dashboard.top_n must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id must be numeric")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
	}

	return nil
}

// FileMode returns the configured data file permissions.
func (s StorageConfig) FileMode() os.FileMode {
	m, _ := parseMode(s.FilePermissions)
	return m
}

// DirMode returns the configured data directory permissions.
func (s StorageConfig) DirMode() os.FileMode {
	m, _ := parseMode(s.DirPermissions)
	return m
}

func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not an octal file mode", s)
	}
	if n > 0o777 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return os.FileMode(n), nil
}
