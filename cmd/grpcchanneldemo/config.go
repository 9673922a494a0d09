package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for the demo binary.
type Config struct {
	// Services maps a logical service name to its connect URL and optional
	// SSH tunnel credentials. Required: at least one entry.
	Services map[string]ServiceConfig `yaml:"services"`

	// RequestTimeoutSec bounds connection establishment and each RPC.
	// Defaults to 5 when omitted.
	RequestTimeoutSec int `yaml:"request_timeout_sec"`

	// PingTimeoutSec bounds a single background health check. Defaults to 2
	// when omitted.
	PingTimeoutSec int `yaml:"ping_timeout_sec"`

	// PingIntervalSec is the delay between background health checks.
	// Defaults to 15 when omitted.
	PingIntervalSec int `yaml:"ping_interval_sec"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`

	// SettingsCachePath is the SQLite file used to remember the last
	// known-good connect URL per service across settings-source failures.
	// Defaults to ":memory:" when omitted.
	SettingsCachePath string `yaml:"settings_cache_path"`
}

// ServiceConfig is the per-service portion of Config.
type ServiceConfig struct {
	// URL is the connect URL: a Unix socket path, a plain "host:port" or
	// "https://host:port", or an "ssh://user@host:port->host:port" tunnel.
	// Required.
	URL string `yaml:"url"`

	// SSHPassword authenticates the SSH hop when URL uses the ssh:// form
	// and no private key is configured. Mutually exclusive with
	// SSHPrivateKeyPath.
	SSHPassword string `yaml:"ssh_password,omitempty"`

	// SSHPrivateKeyPath is the path to a PEM-encoded private key
	// authenticating the SSH hop. Mutually exclusive with SSHPassword.
	SSHPrivateKeyPath string `yaml:"ssh_private_key_path,omitempty"`

	// SSHPrivateKeyPassphrase decrypts SSHPrivateKeyPath if it is encrypted.
	SSHPrivateKeyPassphrase string `yaml:"ssh_private_key_passphrase,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig reads the YAML file at path, unmarshals it into Config,
// applies defaults, and validates all required fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RequestTimeoutSec == 0 {
		cfg.RequestTimeoutSec = 5
	}
	if cfg.PingTimeoutSec == 0 {
		cfg.PingTimeoutSec = 2
	}
	if cfg.PingIntervalSec == 0 {
		cfg.PingIntervalSec = 15
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SettingsCachePath == "" {
		cfg.SettingsCachePath = ":memory:"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if len(cfg.Services) == 0 {
		errs = append(errs, errors.New("services: at least one entry is required"))
	}
	for name, svc := range cfg.Services {
		if svc.URL == "" {
			errs = append(errs, fmt.Errorf("services.%s: url is required", name))
		}
		if svc.SSHPassword != "" && svc.SSHPrivateKeyPath != "" {
			errs = append(errs, fmt.Errorf("services.%s: ssh_password and ssh_private_key_path are mutually exclusive", name))
		}
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}

func (c *Config) requestTimeout() time.Duration { return time.Duration(c.RequestTimeoutSec) * time.Second }
func (c *Config) pingTimeout() time.Duration    { return time.Duration(c.PingTimeoutSec) * time.Second }
func (c *Config) pingInterval() time.Duration   { return time.Duration(c.PingIntervalSec) * time.Second }
