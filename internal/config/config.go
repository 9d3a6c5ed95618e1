package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Endpoints for the two known deployments. A single environment value
// derives both URLs; explicit overrides in config.toml win.
const (
	localAPIURL   = "http://localhost:4000"
	localRelayURL = "ws://localhost:4000/ws"

	productionAPIURL   = "https://api.resq.app"
	productionRelayURL = "wss://relay.resq.app/ws"
)

// Config represents the global ~/.resq/config.toml.
type Config struct {
	Environment    string `toml:"environment"` // "local" or "production"
	DefaultProfile string `toml:"default_profile"`

	// Optional explicit overrides. Empty means derive from Environment.
	APIURL   string `toml:"api_url"`
	RelayURL string `toml:"relay_url"`
}

// ResolveAPIURL returns the REST backend base URL.
func (c *Config) ResolveAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	if c.Environment == "production" {
		return productionAPIURL
	}
	return localAPIURL
}

// ResolveRelayURL returns the relay server WebSocket URL.
func (c *Config) ResolveRelayURL() string {
	if c.RelayURL != "" {
		return c.RelayURL
	}
	if c.Environment == "production" {
		return productionRelayURL
	}
	return localRelayURL
}

// Validate checks the environment value.
func (c *Config) Validate() error {
	switch c.Environment {
	case "", "local", "production":
		return nil
	default:
		return fmt.Errorf("invalid environment %q: must be \"local\" or \"production\"", c.Environment)
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
