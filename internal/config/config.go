// Package config provides configuration management for venturelab.
//
// Config file locations (priority order):
//  1. $VENTURELAB_CONFIG
//  2. ./venturelab.yaml
//  3. ~/.config/venturelab/config.yaml
//  4. /etc/venturelab/config.yaml
//
// Missing values fall back to defaults; an absent file means all defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultAddr             = ":3000"
	DefaultDatabasePath     = "./venturelab.db"
	DefaultLogLevel         = "info"
	DefaultRetentionPerType = 1000
	DefaultRunTimeout       = 30 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultCatalogDebounce  = 500 * time.Millisecond
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML config, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Catalog.Debounce == 0 {
		c.Catalog.Debounce = Duration(DefaultCatalogDebounce)
	}
	if c.Tracker.RetentionPerType == 0 {
		c.Tracker.RetentionPerType = DefaultRetentionPerType
	}
	if c.Runner.DefaultTimeout == 0 {
		c.Runner.DefaultTimeout = Duration(DefaultRunTimeout)
	}
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Runner.DefaultTimeout < 0 {
		return fmt.Errorf("invalid config: runner.default_timeout must be positive")
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	catalog := "built-in templates"
	if c.Catalog.Path != "" {
		catalog = c.Catalog.Path
		if c.Catalog.Watch {
			catalog += " (watched)"
		}
	}

	summary := fmt.Sprintf("Listen: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Catalog: %s\n", catalog)
	summary += fmt.Sprintf("Retention: %d per type, Run timeout: %s, Log level: %s",
		c.Tracker.RetentionPerType, c.Runner.DefaultTimeout.Duration(), c.Logging.Level)
	return summary
}
