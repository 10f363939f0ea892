package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "vikabot"
	configFile = "config.yaml"
)

type Config struct {
	// APIBase is the Vikunja API root, e.g. "https://try.vikunja.io/api/v1".
	APIBase string `yaml:"api_base"`
	// CredentialsFile is where per-chat logins persist.
	CredentialsFile string `yaml:"credentials_file"`
	// RequestTimeoutSeconds bounds each remote call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

func defaults() (*Config, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		APIBase:               "http://localhost:3456/api/v1",
		CredentialsFile:       filepath.Join(xdgHome, ".config", xdgAppName, "user_credentials.json"),
		RequestTimeoutSeconds: 10,
	}, nil
}

// Load reads the config file, falling back to defaults when it is
// absent, then applies environment overrides (VIKUNJA_API,
// VIKABOT_CREDENTIALS_FILE) in either case.
func Load() (*Config, error) {
	cfg, err := defaults()
	if err != nil {
		return nil, err
	}

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if v := os.Getenv("VIKUNJA_API"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("VIKABOT_CREDENTIALS_FILE"); v != "" {
		cfg.CredentialsFile = v
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 10
	}
	return cfg, nil
}

// Save writes the config file with owner-only permissions.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
