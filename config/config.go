// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/reshape/domain/bridge"
	"github.com/artpar/reshape/domain/version"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`

	// VersionHeader names the request header carrying the client's API
	// version (default: X-API-Version).
	VersionHeader string `yaml:"version_header"`

	// Models are named operation sets registered as procedures, invocable
	// from any bridge via the procedure/model operation.
	Models map[string]bridge.Operations `yaml:"models"`

	// Bridges are the version-bridge rules, each carrying per-medium
	// operation lists.
	Bridges []BridgeConfig `yaml:"bridges"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// DatabaseConfig configures the optional bridge store. When DSN is empty,
// bridges come from this file only.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// BridgeConfig declares one version bridge.
type BridgeConfig struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Path        string                 `yaml:"path"`
	MatchType   string                 `yaml:"match_type"` // exact, prefix, regex; default exact
	Methods     []string               `yaml:"methods"`
	Version     string                 `yaml:"version"`
	Priority    int                    `yaml:"priority"`
	Disabled    bool                   `yaml:"disabled"`
	Request     bridge.RequestChanges  `yaml:"request"`
	Response    bridge.ResponseChanges `yaml:"response"`
}

// Bridge converts the declaration to a domain value.
func (bc BridgeConfig) Bridge() bridge.Bridge {
	mt := bridge.MatchType(bc.MatchType)
	if mt == "" {
		mt = bridge.MatchExact
	}
	return bridge.Bridge{
		Name:        bc.Name,
		Description: bc.Description,
		PathPattern: bc.Path,
		MatchType:   mt,
		Methods:     bc.Methods,
		Version:     bc.Version,
		Priority:    bc.Priority,
		Enabled:     !bc.Disabled,
		Request:     bc.Request,
		Response:    bc.Response,
	}
}

// Load reads, parses, and validates a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML config bytes, applying defaults and validating.
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

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.VersionHeader == "" {
		c.VersionHeader = "X-API-Version"
	}
}

// Validate checks the structural parts of the configuration. Operation
// payload grammar is validated when bridges are compiled, before serving.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, bc := range c.Bridges {
		if bc.Name == "" {
			return fmt.Errorf("bridge %d: name is required", i)
		}
		if seen[bc.Name] {
			return fmt.Errorf("bridge %q: duplicate name", bc.Name)
		}
		seen[bc.Name] = true

		if bc.Path == "" {
			return fmt.Errorf("bridge %q: path is required", bc.Name)
		}
		switch bridge.MatchType(bc.MatchType) {
		case bridge.MatchExact, bridge.MatchPrefix, bridge.MatchRegex, "":
		default:
			return fmt.Errorf("bridge %q: unknown match_type %q", bc.Name, bc.MatchType)
		}
		if bc.Version == "" {
			return fmt.Errorf("bridge %q: version is required", bc.Name)
		}
		if _, err := version.Parse(bc.Version); err != nil {
			return fmt.Errorf("bridge %q: %w", bc.Name, err)
		}
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}

	return nil
}
