package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8080/api" {
			t.Errorf("expected base URL http://localhost:8080/api, got %s", config.API.BaseURL)
		}
		if config.API.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.API.Timeout())
		}
		if config.Database.Path != "./revu.db" {
			t.Errorf("expected database path ./revu.db, got %s", config.Database.Path)
		}
		if config.Google.EventMinutes != 60 {
			t.Errorf("expected 60 minute events, got %d", config.Google.EventMinutes)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig Overrides Defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[api]
base_url = "https://revise.example.com/api"
rate_limit = 2.5

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://revise.example.com/api" {
			t.Errorf("expected overridden base URL, got %s", config.API.BaseURL)
		}
		if config.API.RateLimit != 2.5 {
			t.Errorf("expected rate limit 2.5, got %v", config.API.RateLimit)
		}
		if config.API.TimeoutSeconds != 10 {
			t.Errorf("expected default timeout to survive, got %d", config.API.TimeoutSeconds)
		}
		if config.Database.Path != "./revu.db" {
			t.Errorf("expected default database path to survive, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig Rejects Relative Base URL", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[api]\nbase_url = \"/api\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
