package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvDatabaseDriver = "SPARKIFY_DATABASE_DRIVER"
	EnvDatabaseURL    = "SPARKIFY_DATABASE_URL"
	EnvDatabasePath   = "SPARKIFY_DATABASE_PATH"
	EnvSongDir        = "SPARKIFY_SONG_DIR"
	EnvLogDir         = "SPARKIFY_LOG_DIR"
	EnvLogLevel       = "SPARKIFY_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Data     DataConfig     `toml:"data"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DataConfig points at the input trees.
type DataConfig struct {
	SongDir   string  `toml:"song_dir"`
	LogDir    string  `toml:"log_dir"`
	Extension string  `toml:"extension"`
	RateLimit float64 `toml:"rate_limit"` // Files per second, 0 for unlimited
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// LoadEnv reads KEY=VALUE pairs from the given .env files (default ".env") into the process environment.
//
// Missing files are ignored and variables that are already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with any SPARKIFY_* environment variables that are set.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	override(&c.Database.Driver, EnvDatabaseDriver)
	override(&c.Database.URL, EnvDatabaseURL)
	override(&c.Database.Path, EnvDatabasePath)
	override(&c.Data.SongDir, EnvSongDir)
	override(&c.Data.LogDir, EnvLogDir)
	override(&c.Log.Level, EnvLogLevel)
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	dialect, err := ParseDialect(c.Database.Driver)
	if err != nil {
		return err
	}

	switch dialect {
	case SQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalidConfig)
		}
	case Postgres:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for postgres", ErrInvalidConfig)
		}
	}

	if c.Data.SongDir == "" || c.Data.LogDir == "" {
		return fmt.Errorf("%w: data.song_dir and data.log_dir are required", ErrInvalidConfig)
	}

	if c.Data.RateLimit < 0 {
		return fmt.Errorf("%w: data.rate_limit must not be negative", ErrInvalidConfig)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// Resolve loads the config at path when it exists (defaults otherwise), then applies the .env file and environment overrides.
//
// When required is set a missing file fails with [ErrMissingConfig] instead of falling back to defaults.
func Resolve(path string, required bool) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		case required:
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
	}

	if err := LoadEnv(); err != nil {
		return nil, err
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
