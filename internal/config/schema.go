package config

import (
	"time"

	"venturelab/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Runner     RunnerConfig     `yaml:"runner"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins,omitempty"`
}

// DatabaseConfig configures persistence. Use ":memory:" for a throwaway database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// CatalogConfig points at an optional template pack replacing the built-ins
type CatalogConfig struct {
	Path     string   `yaml:"path,omitempty"`
	Watch    bool     `yaml:"watch"`
	Debounce Duration `yaml:"debounce,omitempty"`
}

// TrackerConfig bounds result retention
type TrackerConfig struct {
	RetentionPerType int `yaml:"retention_per_type" validate:"gte=1"`
}

// RunnerConfig configures experiment runs and the simulated collector
type RunnerConfig struct {
	DefaultTimeout  Duration `yaml:"default_timeout"`
	SimulationSeed  int64    `yaml:"simulation_seed"`
	SimulationDelay Duration `yaml:"simulation_delay,omitempty"`
}

// EnrichmentConfig holds the static market and competitor tables
type EnrichmentConfig struct {
	Markets     []domain.MarketData     `yaml:"markets,omitempty" validate:"dive"`
	Competitors []domain.CompetitorData `yaml:"competitors,omitempty" validate:"dive"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
