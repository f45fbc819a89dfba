// Package config loads and saves the end-user client settings as YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcoop/rac/client"
)

const (
	appDir   = "bRAC"
	fileName = "config.yml"
)

// Config is the persisted client configuration.
type Config struct {
	Host               string `yaml:"host"`
	Name               string `yaml:"name,omitempty"`
	Proxy              string `yaml:"proxy,omitempty"`
	MessageFormat      string `yaml:"message_format"`
	MaxMessages        int    `yaml:"max_messages"`
	UpdateTime         int    `yaml:"update_time"` // milliseconds
	Chunked            bool   `yaml:"chunked"`
	HideMyIP           bool   `yaml:"hide_my_ip"`
	RemoveNull         bool   `yaml:"remove_null"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	Timeout            int    `yaml:"timeout"` // milliseconds
	Resolver           string `yaml:"resolver,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Host:               "wracs://meex.lol",
		MessageFormat:      client.DefaultMessageFormat,
		MaxMessages:        200,
		UpdateTime:         100,
		Chunked:            true,
		HideMyIP:           true,
		InsecureSkipVerify: true,
		Timeout:            int(client.DefaultTimeout / time.Millisecond),
	}
}

// DefaultPath returns <user config dir>/bRAC/config.yml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load reads path. A missing file yields the defaults; fields absent from
// the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// UpdateInterval returns UpdateTime as a duration.
func (c *Config) UpdateInterval() time.Duration {
	if c.UpdateTime <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.UpdateTime) * time.Millisecond
}

// ClientConfig converts the file settings into connection settings.
func (c *Config) ClientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.Proxy = c.Proxy
	cc.Resolver = c.Resolver
	cc.RemoveNull = c.RemoveNull
	cc.InsecureSkipVerify = c.InsecureSkipVerify
	if c.Timeout > 0 {
		cc.Timeout = time.Duration(c.Timeout) * time.Millisecond
	}
	return cc
}
