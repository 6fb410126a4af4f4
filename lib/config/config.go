// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads the config path from.
const EnvironmentVariable = "COLLECTIONS_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the grain configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Paths     PathsConfig     `yaml:"paths"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	Host      HostConfig      `yaml:"host"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	LogLevel  string           `yaml:"log_level,omitempty"`
	Paths     *PathsConfig     `yaml:"paths,omitempty"`
	Heartbeat *HeartbeatConfig `yaml:"heartbeat,omitempty"`
	Fanout    *FanoutConfig    `yaml:"fanout,omitempty"`
	Host      *HostConfig      `yaml:"host,omitempty"`
}

// PathsConfig configures directory and file locations.
type PathsConfig struct {
	// Var is the grain's writable directory. GET var/ lists it and
	// var/<name> serves files from it.
	Var string `yaml:"var"`

	// References holds one file per saved reference, named by token.
	// Default: ${COLLECTIONS_VAR}/sturdyrefs
	References string `yaml:"references"`

	// Description is the file holding the collection description.
	// Default: ${COLLECTIONS_VAR}/description
	Description string `yaml:"description"`

	// Static is the read-only package root. It contains the
	// precompressed script.js.gz and style.css.gz bundles and the
	// client/ tree.
	Static string `yaml:"static"`
}

// HeartbeatConfig configures streaming connection liveness checks.
type HeartbeatConfig struct {
	// Timeout is how long a ping may go unanswered before the
	// connection is torn down. A new ping is sent when it elapses.
	// Default: 10s
	Timeout string `yaml:"timeout"`
}

// FanoutConfig configures notification delivery to subscribers.
type FanoutConfig struct {
	// OutboxCapacity is how many frames may be queued for one
	// subscriber before further frames are dropped. Default: 256
	OutboxCapacity int `yaml:"outbox_capacity"`
}

// HostConfig configures the sockets shared with the host platform.
type HostConfig struct {
	// ListenSocket is where the grain accepts session calls.
	ListenSocket string `yaml:"listen_socket"`

	// PlatformSocket is where the grain calls the platform API.
	PlatformSocket string `yaml:"platform_socket"`
}

// Default returns the default configuration, used as the base before
// the config file is merged in.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Paths: PathsConfig{
			Var:         "/var",
			References:  "${COLLECTIONS_VAR}/sturdyrefs",
			Description: "${COLLECTIONS_VAR}/description",
			Static:      "/",
		},
		Heartbeat: HeartbeatConfig{
			Timeout: "10s",
		},
		Fanout: FanoutConfig{
			OutboxCapacity: 256,
		},
		Host: HostConfig{
			ListenSocket:   "/run/collections/grain.sock",
			PlatformSocket: "/run/collections/platform.sock",
		},
	}
}

// Load loads configuration from the file named by COLLECTIONS_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of the grain config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// Resolved returns the default configuration with variables expanded,
// for running without a config file.
func Resolved() *Config {
	cfg := Default()
	cfg.expandVariables()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	// JSON is a subset of YAML, so JSON-with-comments only needs its
	// comments and trailing commas stripped.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{LogLevel: "warn"}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}
	if overrides.Paths != nil {
		overrideString(&c.Paths.Var, overrides.Paths.Var)
		overrideString(&c.Paths.References, overrides.Paths.References)
		overrideString(&c.Paths.Description, overrides.Paths.Description)
		overrideString(&c.Paths.Static, overrides.Paths.Static)
	}
	if overrides.Heartbeat != nil {
		overrideString(&c.Heartbeat.Timeout, overrides.Heartbeat.Timeout)
	}
	if overrides.Fanout != nil && overrides.Fanout.OutboxCapacity != 0 {
		c.Fanout.OutboxCapacity = overrides.Fanout.OutboxCapacity
	}
	if overrides.Host != nil {
		overrideString(&c.Host.ListenSocket, overrides.Host.ListenSocket)
		overrideString(&c.Host.PlatformSocket, overrides.Host.PlatformSocket)
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Var = expandVars(c.Paths.Var, vars)
	vars["COLLECTIONS_VAR"] = c.Paths.Var

	c.Paths.References = expandVars(c.Paths.References, vars)
	c.Paths.Description = expandVars(c.Paths.Description, vars)
	c.Paths.Static = expandVars(c.Paths.Static, vars)
	c.Host.ListenSocket = expandVars(c.Host.ListenSocket, vars)
	c.Host.PlatformSocket = expandVars(c.Host.PlatformSocket, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// HeartbeatTimeout returns the parsed heartbeat timeout.
func (c *Config) HeartbeatTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Heartbeat.Timeout)
	if err != nil {
		return 0
	}
	return timeout
}

// SlogLevel returns the parsed log level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err))
	}

	for name, value := range map[string]string{
		"paths.var":            c.Paths.Var,
		"paths.references":     c.Paths.References,
		"paths.description":    c.Paths.Description,
		"paths.static":         c.Paths.Static,
		"host.listen_socket":   c.Host.ListenSocket,
		"host.platform_socket": c.Host.PlatformSocket,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if timeout, err := time.ParseDuration(c.Heartbeat.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("invalid heartbeat.timeout %q: %w", c.Heartbeat.Timeout, err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat.timeout must be positive, got %s", timeout))
	}

	if c.Fanout.OutboxCapacity <= 0 {
		errs = append(errs, fmt.Errorf("fanout.outbox_capacity must be positive, got %d", c.Fanout.OutboxCapacity))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the writable directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Var, c.Paths.References, filepath.Dir(c.Paths.Description)} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
