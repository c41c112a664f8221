package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration for hos, stored in ~/.hos/config.yaml.
// Every value can be overridden by the environment variable named in its env tag.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Display DisplayConfig `yaml:"display"`
}

// APIConfig points hos at the tracking backend.
type APIConfig struct {
	// BaseURL is the API origin; endpoint paths are appended to it verbatim.
	BaseURL string        `yaml:"base_url" env:"HOS_API_URL" env-description:"Base URL of the tracking API, e.g. https://hos.example.com"`
	Timeout time.Duration `yaml:"timeout" env:"HOS_API_TIMEOUT" env-default:"30s" env-description:"HTTP timeout per request"`
}

// AuthConfig tunes the session manager.
type AuthConfig struct {
	ReadyTimeout time.Duration `yaml:"ready_timeout" env:"HOS_READY_TIMEOUT" env-default:"5s" env-description:"How long token lookups wait for session initialization"`
}

// StorageConfig selects where tokens are persisted.
type StorageConfig struct {
	// Driver is "file" (JSON file) or "sqlite".
	Driver string `yaml:"driver" env:"HOS_STORAGE_DRIVER" env-default:"file" env-description:"Token storage backend: file or sqlite"`
	// Path defaults to ~/.hos/tokens.json or ~/.hos/hos.db depending on Driver.
	Path string `yaml:"path" env:"HOS_STORAGE_PATH" env-description:"Token storage location"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level  string `yaml:"level" env:"HOS_LOG_LEVEL" env-default:"warn" env-description:"Log level: debug, info, warn, error"`
	Format string `yaml:"format" env:"HOS_LOG_FORMAT" env-default:"console" env-description:"Log format: console or json"`
}

// DisplayConfig controls how dates are interpreted and printed.
type DisplayConfig struct {
	// Timezone is an IANA name (e.g. "America/Chicago"). Empty = local time.
	Timezone string `yaml:"timezone" env:"HOS_TIMEZONE" env-description:"IANA timezone for log days, empty for local time"`
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// configTemplate is the annotated config written on first run.
const configTemplate = `# hos configuration – ~/.hos/config.yaml
#
# Every setting can be overridden with the environment variable shown next to
# it. Run "hos config" to print the effective values.

api:
  # Base URL of the tracking API (HOS_API_URL). Required.
  base_url: ""
  # Per-request HTTP timeout (HOS_API_TIMEOUT).
  timeout: 30s

auth:
  # How long token lookups wait for the session to initialize (HOS_READY_TIMEOUT).
  ready_timeout: 5s

storage:
  # Where access/refresh tokens are kept (HOS_STORAGE_DRIVER).
  # • file   – JSON file, ~/.hos/tokens.json (default)
  # • sqlite – SQLite database, ~/.hos/hos.db
  driver: file
  # Override the storage location (HOS_STORAGE_PATH).
  path: ""

log:
  # debug, info, warn or error (HOS_LOG_LEVEL).
  level: warn
  # console or json (HOS_LOG_FORMAT).
  format: console

display:
  # IANA timezone used to pick log days, e.g. "America/Chicago" (HOS_TIMEZONE).
  # Leave empty to use the local timezone.
  timezone: ""
`

// BaseDir returns the root data directory (~/.hos).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".hos"), nil
}

// FilePath returns the path to ~/.hos/config.yaml.
func FilePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads ~/.hos/config.yaml, creating it with annotated defaults on first run.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file is created from the
// template; environment variables override file values, and defaults fill
// whatever is still empty.
func LoadFile(path string) (Config, error) {
	var cfg Config

	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		// First run: write the annotated template so users can discover options.
		if err := writeDefault(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("reading environment: %w", err)
		}
	case statErr != nil:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	if err := cfg.normalize(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize fills derived defaults and validates enumerations.
func (c *Config) normalize(baseDir string) error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(baseDir, "tokens.json")
		}
	case DriverSQLite:
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(baseDir, "hos.db")
		}
	default:
		return fmt.Errorf("invalid storage driver %q (want %s or %s)", c.Storage.Driver, DriverFile, DriverSQLite)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Display.Timezone. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}

// Describe lists the environment variables understood by hos.
func Describe() (string, error) {
	var cfg Config
	header := "Environment variables:"
	return cleanenv.GetDescription(&cfg, &header)
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
