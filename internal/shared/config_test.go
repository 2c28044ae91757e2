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

		if config.Database.Path != "./tunepool.db" {
			t.Errorf("expected database path ./tunepool.db, got %s", config.Database.Path)
		}

		if config.Search.Debounce != 600*time.Millisecond {
			t.Errorf("expected 600ms debounce, got %v", config.Search.Debounce)
		}

		if config.Player.PollInterval != 500*time.Millisecond {
			t.Errorf("expected 500ms poll interval, got %v", config.Player.PollInterval)
		}

		if config.HTTP.Referer != "http://www.kuwo.cn/" {
			t.Errorf("expected kuwo referer, got %s", config.HTTP.Referer)
		}

		if config.Search.OnlineEnabled {
			t.Error("expected online search to default to disabled")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

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

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[search]
debounce = "250ms"
workers = 2
online_enabled = true

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Search.Debounce != 250*time.Millisecond {
			t.Errorf("expected 250ms debounce, got %v", config.Search.Debounce)
		}
		if !config.Search.OnlineEnabled {
			t.Error("expected online search enabled")
		}
		if config.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("expected defaults merged with overrides, got %s", config.Server.Addr())
		}
		if config.HTTP.Timeout != 10*time.Second {
			t.Errorf("expected default http timeout, got %v", config.HTTP.Timeout)
		}
	})

	t.Run("LoadConfig Rejects Invalid Values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[search]\nworkers = 0\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LibraryRoots Expands Home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		config := DefaultConfig()
		config.Library.Roots = []string{"~/Music", "/srv/audio"}

		roots := config.LibraryRoots()
		if roots[0] != filepath.Join(home, "Music") {
			t.Errorf("expected expanded root, got %s", roots[0])
		}
		if roots[1] != "/srv/audio" {
			t.Errorf("expected absolute root untouched, got %s", roots[1])
		}
	})
}
