// Package config loads client configuration from a YAML file and
// SECURESCAN_* environment variables. Environment values override file
// values; flags handled by the CLI layer override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes the "30s"/"3m" form
// in both YAML documents and environment variables.
type Duration time.Duration

// SetValue implements cleanenv.Setter for env values and env-defaults.
func (d *Duration) SetValue(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.SetValue(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the CLI.
type Config struct {
	// BaseURL is the root of the SecureScan backend.
	BaseURL string `yaml:"base_url" env:"SECURESCAN_BASE_URL" env-default:"https://api.securescan.io"`

	// Timeout is the per-request HTTP timeout.
	Timeout Duration `yaml:"timeout" env:"SECURESCAN_TIMEOUT" env-default:"30s"`

	// PollInterval is the fixed interval between scan status fetches.
	PollInterval Duration `yaml:"poll_interval" env:"SECURESCAN_POLL_INTERVAL" env-default:"3s"`

	// SessionPath is the SQLite file holding login sessions.
	// Empty means <config dir>/session.db.
	SessionPath string `yaml:"session_path" env:"SECURESCAN_SESSION_PATH"`

	// Proxy is an optional HTTP or SOCKS5 proxy URL.
	Proxy string `yaml:"proxy" env:"SECURESCAN_PROXY"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" env:"SECURESCAN_INSECURE" env-default:"false"`

	// MaxRPS caps outbound requests per second (0 = unlimited).
	MaxRPS float64 `yaml:"max_rps" env:"SECURESCAN_MAX_RPS" env-default:"0"`

	// LogLevel controls diagnostic logging: debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"SECURESCAN_LOG_LEVEL" env-default:"warn"`
}

// Dir returns the per-user configuration directory (~/.securescan).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".securescan"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration. With an explicit path the file must exist;
// with an empty path the default file is used when present, otherwise the
// environment (and defaults) alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		defaultPath, err := DefaultPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	return &cfg, nil
}

// SessionDBPath resolves the session database location, creating the
// config directory when the default location is used.
func (c *Config) SessionDBPath() (string, error) {
	if c.SessionPath != "" {
		return c.SessionPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}
	return filepath.Join(dir, "session.db"), nil
}

// WriteDefault writes a config file populated with the defaults to path,
// creating parent directories as needed. It refuses to overwrite an
// existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return fmt.Errorf("config: build defaults: %w", err)
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
