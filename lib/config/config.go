// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/casement-foundation/casement/lib/window"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the controller configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths      PathsConfig      `yaml:"paths"`
	Controller ControllerConfig `yaml:"controller"`
	Host       HostConfig       `yaml:"host"`
	Events     EventsConfig     `yaml:"events"`
	Recent     RecentConfig     `yaml:"recent"`

	// Windows overrides the built-in window presets by name.
	Windows window.Presets `yaml:"windows"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Controller *ControllerConfig `yaml:"controller,omitempty"`
	Host       *HostConfig       `yaml:"host,omitempty"`
	Events     *EventsConfig     `yaml:"events,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for casement data.
	Root string `yaml:"root"`

	// State holds runtime state that survives restarts.
	State string `yaml:"state"`

	// Storage is the root of the storage service's JSON files.
	Storage string `yaml:"storage"`

	// Run holds the socket and lock file.
	Run string `yaml:"run"`
}

// ControllerConfig configures the controller process.
type ControllerConfig struct {
	// SocketPath is the hub's Unix socket.
	// Default: ${CASEMENT_ROOT}/run/casement.sock
	SocketPath string `yaml:"socket_path"`

	// LockPath is the single-instance lock file.
	// Default: ${CASEMENT_ROOT}/run/casement.lock
	LockPath string `yaml:"lock_path"`
}

// HostConfig configures the UI-host process spawned per window.
type HostConfig struct {
	// Command is the UI-host executable.
	// Default: casement-host (found in PATH)
	Command string `yaml:"command"`

	Args []string `yaml:"args"`

	// AttachTimeout bounds how long a host has to connect back.
	// Default: 10s
	AttachTimeout string `yaml:"attach_timeout"`

	// CloseGrace is how long a closing host has to exit before it is
	// signalled. Default: 5s
	CloseGrace string `yaml:"close_grace"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	// ReplyTimeout bounds every wait-for-reply. Default: 60s
	ReplyTimeout string `yaml:"reply_timeout"`
}

// RecentConfig configures the recent-workspace list.
type RecentConfig struct {
	// Limit is the number of workspaces kept. Default: 20
	Limit int `yaml:"limit"`
}

// Default returns the default configuration. It is the base every file
// is loaded over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "casement")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:    defaultRoot,
			State:   "${CASEMENT_ROOT}/state",
			Storage: "${CASEMENT_ROOT}/storage",
			Run:     "${CASEMENT_ROOT}/run",
		},
		Controller: ControllerConfig{
			SocketPath: "${CASEMENT_ROOT}/run/casement.sock",
			LockPath:   "${CASEMENT_ROOT}/run/casement.lock",
		},
		Host: HostConfig{
			Command:       "casement-host",
			AttachTimeout: "10s",
			CloseGrace:    "5s",
		},
		Events: EventsConfig{
			ReplyTimeout: "60s",
		},
		Recent: RecentConfig{
			Limit: 20,
		},
	}
}

// Load loads configuration from the file named by CASEMENT_CONFIG, or
// returns the expanded defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("CASEMENT_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
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
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		override(&c.Paths.Root, overrides.Paths.Root)
		override(&c.Paths.State, overrides.Paths.State)
		override(&c.Paths.Storage, overrides.Paths.Storage)
		override(&c.Paths.Run, overrides.Paths.Run)
	}

	if overrides.Controller != nil {
		override(&c.Controller.SocketPath, overrides.Controller.SocketPath)
		override(&c.Controller.LockPath, overrides.Controller.LockPath)
	}

	if overrides.Host != nil {
		override(&c.Host.Command, overrides.Host.Command)
		if overrides.Host.Args != nil {
			c.Host.Args = overrides.Host.Args
		}
		override(&c.Host.AttachTimeout, overrides.Host.AttachTimeout)
		override(&c.Host.CloseGrace, overrides.Host.CloseGrace)
	}

	if overrides.Events != nil {
		override(&c.Events.ReplyTimeout, overrides.Events.ReplyTimeout)
	}
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"CASEMENT_ROOT": c.Paths.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["CASEMENT_ROOT"] = c.Paths.Root

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Storage = expandVars(c.Paths.Storage, vars)
	c.Paths.Run = expandVars(c.Paths.Run, vars)
	c.Controller.SocketPath = expandVars(c.Controller.SocketPath, vars)
	c.Controller.LockPath = expandVars(c.Controller.LockPath, vars)
	c.Host.Command = expandVars(c.Host.Command, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}
	if c.Paths.Storage == "" {
		errs = append(errs, errors.New("paths.storage is required"))
	}
	if c.Controller.SocketPath == "" {
		errs = append(errs, errors.New("controller.socket_path is required"))
	}
	if c.Controller.LockPath == "" {
		errs = append(errs, errors.New("controller.lock_path is required"))
	}
	if c.Host.Command == "" {
		errs = append(errs, errors.New("host.command is required"))
	}
	for field, value := range map[string]string{
		"host.attach_timeout":  c.Host.AttachTimeout,
		"host.close_grace":     c.Host.CloseGrace,
		"events.reply_timeout": c.Events.ReplyTimeout,
	} {
		if _, err := parsePositive(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	if c.Recent.Limit <= 0 {
		errs = append(errs, fmt.Errorf("recent.limit must be positive, got %d", c.Recent.Limit))
	}

	return errors.Join(errs...)
}

func parsePositive(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return d, nil
}

// ReplyTimeout returns events.reply_timeout, or 0 (the bus default)
// when it does not parse.
func (c *Config) ReplyTimeout() time.Duration {
	d, _ := parsePositive(c.Events.ReplyTimeout)
	return d
}

// AttachTimeout returns host.attach_timeout, or 0 when it does not parse.
func (c *Config) AttachTimeout() time.Duration {
	d, _ := parsePositive(c.Host.AttachTimeout)
	return d
}

// CloseGrace returns host.close_grace, or 0 when it does not parse.
func (c *Config) CloseGrace() time.Duration {
	d, _ := parsePositive(c.Host.CloseGrace)
	return d
}

// Presets returns the built-in window presets with the configured
// overrides merged in.
func (c *Config) Presets() window.Presets {
	return window.DefaultPresets().With(c.Windows)
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
		c.Paths.Storage,
		c.Paths.Run,
		filepath.Dir(c.Controller.SocketPath),
		filepath.Dir(c.Controller.LockPath),
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
