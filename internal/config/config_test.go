package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
storage:
  backend: sqlite
  path: "./data/test.db"
  file_permissions: "0640"
  dir_permissions: "0750"

logging:
  level: "debug"
  format: "json"

dashboard:
  top_n: 5

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true
  retry_delay_base: 2s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Unexpected backend: %s", cfg.Storage.Backend)
	}
	if cfg.Storage.FileMode() != 0o640 || cfg.Storage.DirMode() != 0o750 {
		t.Errorf("Unexpected permissions: %v %v", cfg.Storage.FileMode(), cfg.Storage.DirMode())
	}
	if cfg.Dashboard.TopN != 5 {
		t.Errorf("Unexpected top_n: %d", cfg.Dashboard.TopN)
	}
	if cfg.Telegram.RetryDelayBase != 2*time.Second {
		t.Errorf("Unexpected retry delay: %v", cfg.Telegram.RetryDelayBase)
	}
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Telegram.MaxRetries)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Path != "./data/sense.json" {
		t.Errorf("Unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.FileMode() != 0o600 || cfg.Storage.DirMode() != 0o700 {
		t.Errorf("Unexpected default permissions: %v %v", cfg.Storage.FileMode(), cfg.Storage.DirMode())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Dashboard.TopN != 3 {
		t.Errorf("Unexpected top_n default: %d", cfg.Dashboard.TopN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SENSE_STORAGE_BACKEND", "memory")
	t.Setenv("SENSE_DASHBOARD_TOP_N", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Expected env backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Dashboard.TopN != 7 {
		t.Errorf("Expected env top_n 7, got %d", cfg.Dashboard.TopN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:         "file",
			Path:            "./data/test.json",
			FilePermissions: "0600",
			DirPermissions:  "0700",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Dashboard: DashboardConfig{TopN: 3},
		Telegram:  TelegramConfig{MaxRetries: 3},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "memory backend without path",
			mutate:  func(c *Config) { c.Storage.Backend = "memory"; c.Storage.Path = "" },
			wantErr: false,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "postgres" },
			wantErr: true,
		},
		{
			name:    "file backend without path",
			mutate:  func(c *Config) { c.Storage.Path = "" },
			wantErr: true,
		},
		{
			name:    "non-octal permissions",
			mutate:  func(c *Config) { c.Storage.FilePermissions = "rw-------" },
			wantErr: true,
		},
		{
			name:    "permissions out of range",
			mutate:  func(c *Config) { c.Storage.DirPermissions = "17777" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "zero top_n",
			mutate:  func(c *Config) { c.Dashboard.TopN = 0 },
			wantErr: true,
		},
		{
			name: "missing telegram token when enabled",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.ChatID = "123"
			},
			wantErr: true,
		},
		{
			name: "non-numeric chat id",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.BotToken = "token"
				c.Telegram.ChatID = "@channel"
			},
			wantErr: true,
		},
		{
			name: "telegram disabled ignores missing token",
			mutate: func(c *Config) {
				c.Telegram.Enabled = false
				c.Telegram.BotToken = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
