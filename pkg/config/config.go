// Package config loads and persists plume's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/plumenet/plume/pkg/upload"
)

const (
	DefaultConfigDir  = ".plume"
	DefaultConfigFile = "config.yaml"
	DefaultDraftsFile = "drafts.db"
)

// Config is the on-disk configuration. Zero values fall back to the
// defaults baked into the packages that consume them.
type Config struct {
	Upload UploadConfig `yaml:"upload,omitempty"`
	Relays []string     `yaml:"relays,omitempty"`
	Signer SignerConfig `yaml:"signer,omitempty"`
	Drafts DraftsConfig `yaml:"drafts,omitempty"`
	Guard  GuardConfig  `yaml:"guard,omitempty"`
}

type UploadConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Retries        int    `yaml:"retries,omitempty"`
}

// SignerConfig names the external program that holds the key and signs
// events. Empty means unsigned operation; only dry runs can publish.
type SignerConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

type DraftsConfig struct {
	// Path of the drafts database. Empty means DraftsPath resolves it
	// under the config directory.
	Path string `yaml:"path,omitempty"`
}

type GuardConfig struct {
	// Disabled turns off the private-key scan before submission.
	Disabled bool `yaml:"disabled,omitempty"`
}

func Default() *Config {
	return &Config{
		Upload: UploadConfig{
			Endpoint:       upload.DefaultEndpoint,
			TimeoutSeconds: 90,
			Retries:        2,
		},
		Relays: []string{
			"wss://relay.damus.io",
			"wss://nos.lol",
		},
	}
}

// DefaultPath returns ~/.plume/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads the configuration at path. A missing file is not an error;
// the defaults are returned so a fresh install works without setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration atomically, creating the directory first.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (c *Config) Validate() error {
	if c.Upload.Endpoint != "" {
		u, err := url.Parse(c.Upload.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("upload endpoint %q must be an http(s) URL", c.Upload.Endpoint)
		}
	}
	if c.Upload.TimeoutSeconds < 0 {
		return fmt.Errorf("upload timeout_seconds cannot be negative")
	}
	if c.Upload.Retries < 0 {
		return fmt.Errorf("upload retries cannot be negative")
	}

	for _, relay := range c.Relays {
		u, err := url.Parse(relay)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("relay %q must be a ws(s) URL", relay)
		}
	}

	return nil
}

// UploadTimeout returns the configured timeout as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

// DraftsPath resolves where the drafts database lives.
func (c *Config) DraftsPath() (string, error) {
	if c.Drafts.Path != "" {
		return c.Drafts.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultDraftsFile), nil
}
