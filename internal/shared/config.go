package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	HTTP     HTTPConfig     `toml:"http"`
	Search   SearchConfig   `toml:"search"`
	Player   PlayerConfig   `toml:"player"`
	Library  LibraryConfig  `toml:"library"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// HTTPConfig configures the single HTTP client shared by every provider.
type HTTPConfig struct {
	Timeout   time.Duration `toml:"timeout"`
	UserAgent string        `toml:"user_agent"`
	Referer   string        `toml:"referer"`
	RateLimit float64       `toml:"rate_limit"` // requests per second, per provider
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	Debounce      time.Duration `toml:"debounce"`
	Workers       int           `toml:"workers"`
	Timeout       time.Duration `toml:"timeout"`
	OnlineEnabled bool          `toml:"online_enabled"` // default until the user toggles it
}

// PlayerConfig configures the external player process.
//
// Command arguments may contain the {url} and {start} placeholders.
type PlayerConfig struct {
	Command      []string      `toml:"command"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// LibraryConfig lists the directories scanned for local audio.
type LibraryConfig struct {
	Roots      []string `toml:"roots"`
	Extensions []string `toml:"extensions"`
}

// ServerConfig contains HTTP server settings for the local control API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig sets the log level and the file used when stderr is unavailable (TUI).
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Addr returns host:port for the control API listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Search.Workers <= 0:
		return fmt.Errorf("%w: search.workers must be positive", ErrInvalidConfig)
	case c.Search.Debounce < 0:
		return fmt.Errorf("%w: search.debounce must not be negative", ErrInvalidConfig)
	case c.HTTP.Timeout <= 0:
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	case c.Player.PollInterval <= 0:
		return fmt.Errorf("%w: player.poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// LibraryRoots returns the configured roots with a leading ~ expanded.
func (c *Config) LibraryRoots() []string {
	home, _ := os.UserHomeDir()
	roots := make([]string, 0, len(c.Library.Roots))
	for _, r := range c.Library.Roots {
		if home != "" && (r == "~" || strings.HasPrefix(r, "~/")) {
			r = filepath.Join(home, strings.TrimPrefix(r, "~"))
		}
		roots = append(roots, r)
	}
	return roots
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
