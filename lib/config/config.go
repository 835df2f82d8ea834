// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "AGENTDECK_CONFIG"

// Config is the configuration of the agentdeck daemon and CLI.
type Config struct {
	// StateDir holds output.db, push.db, the VAPID keys, the daemon
	// lock and (by default) the control socket.
	StateDir string `yaml:"state_dir"`

	// SocketPath is the daemon's control socket. Default:
	// <state_dir>/agentdeck.sock.
	SocketPath string `yaml:"socket_path"`

	// DefaultWorkingDir is used by create when no directory is given.
	DefaultWorkingDir string `yaml:"default_working_dir"`

	// DebugWorkingDir is where debug sessions start. Empty uses the
	// working directory of the session being debugged.
	DebugWorkingDir string `yaml:"debug_working_dir"`

	// PublicURL is the base URL put into notification click targets.
	PublicURL string `yaml:"public_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Capture CaptureConfig `yaml:"capture"`
	Tmux    TmuxConfig    `yaml:"tmux"`
	Push    PushConfig    `yaml:"push"`
	Agents  AgentsConfig  `yaml:"agents"`
}

// CaptureConfig tunes the background capture loop.
type CaptureConfig struct {
	// Interval between capture ticks. Default: 2s.
	Interval time.Duration `yaml:"interval"`

	// FingerprintLines is how many trailing lines of the last capture
	// are used to locate the overlap in the next one. Default: 5.
	FingerprintLines int `yaml:"fingerprint_lines"`

	// MaxFailures is how many consecutive driver failures mark a
	// session dead. Default: 3.
	MaxFailures int `yaml:"max_failures"`
}

// TmuxConfig shapes the sessions agentdeck creates.
type TmuxConfig struct {
	// Socket selects a dedicated tmux server. Empty uses the user's
	// default server so sessions can be attached with plain tmux.
	Socket string `yaml:"socket"`

	// ConfigFile is passed as -f when agentdeck starts the server.
	ConfigFile string `yaml:"config_file"`

	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	HistoryLimit int `yaml:"history_limit"`

	// Concurrency caps simultaneous tmux invocations. Default: 8.
	Concurrency int `yaml:"concurrency"`

	// CommandTimeout bounds a single tmux invocation. Default: 5s.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// PushConfig configures Web Push delivery.
type PushConfig struct {
	// Disabled turns notifications off: no VAPID keys are generated
	// and subscription actions fail.
	Disabled bool `yaml:"disabled"`

	// Subscriber is the VAPID contact (mailto: or https: URL).
	Subscriber string `yaml:"subscriber"`

	// TTL is how long the push service keeps an undelivered message.
	TTL time.Duration `yaml:"ttl"`
}

// AgentsConfig configures the agent adapters.
type AgentsConfig struct {
	// OverridesFile is an optional JSONC file adding shortcuts and
	// slash commands per agent kind.
	OverridesFile string `yaml:"overrides_file"`

	// RehydrateDirs restricts startup adoption of running tmux
	// sessions to those whose pane is inside one of these directories.
	// Empty adopts every agent session.
	RehydrateDirs []string `yaml:"rehydrate_dirs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".local", "state", "agentdeck")

	return &Config{
		StateDir:          stateDir,
		SocketPath:        "",
		DefaultWorkingDir: homeDir,
		PublicURL:         "http://localhost:8000",
		LogLevel:          "info",
		Capture: CaptureConfig{
			Interval:         2 * time.Second,
			FingerprintLines: 5,
			MaxFailures:      3,
		},
		Tmux: TmuxConfig{
			Width:          200,
			Height:         50,
			HistoryLimit:   2000,
			Concurrency:    8,
			CommandTimeout: 5 * time.Second,
		},
		Push: PushConfig{
			Subscriber: "mailto:agentdeck@localhost",
			TTL:        time.Hour,
		},
	}
}

// Load reads the file named by AGENTDECK_CONFIG, or returns the
// defaults when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		cfg := Default()
		cfg.finish()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads the YAML file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.finish()
	return cfg, nil
}

// finish expands variables and derives dependent defaults.
func (c *Config) finish() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}

	c.StateDir = expandVars(c.StateDir, vars)
	vars["AGENTDECK_STATE"] = c.StateDir

	c.SocketPath = expandVars(c.SocketPath, vars)
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.StateDir, "agentdeck.sock")
	}
	c.DefaultWorkingDir = expandVars(c.DefaultWorkingDir, vars)
	c.DebugWorkingDir = expandVars(c.DebugWorkingDir, vars)
	c.Tmux.Socket = expandVars(c.Tmux.Socket, vars)
	c.Tmux.ConfigFile = expandVars(c.Tmux.ConfigFile, vars)
	c.Agents.OverridesFile = expandVars(c.Agents.OverridesFile, vars)
	for i, dir := range c.Agents.RehydrateDirs {
		c.Agents.RehydrateDirs[i] = expandVars(dir, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
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

// SlogLevel maps LogLevel to a slog level. Unknown values map to Info;
// Validate rejects them.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.StateDir == "" {
		errs = append(errs, fmt.Errorf("state_dir is required"))
	}
	if c.Capture.Interval <= 0 {
		errs = append(errs, fmt.Errorf("capture.interval must be positive"))
	}
	if c.Capture.FingerprintLines < 1 {
		errs = append(errs, fmt.Errorf("capture.fingerprint_lines must be at least 1"))
	}
	if c.Capture.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("capture.max_failures must be at least 1"))
	}
	if c.Tmux.Width < 20 || c.Tmux.Height < 5 {
		errs = append(errs, fmt.Errorf("tmux.width/height too small: %dx%d", c.Tmux.Width, c.Tmux.Height))
	}
	if c.Tmux.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("tmux.history_limit must be positive"))
	}
	if c.Tmux.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("tmux.concurrency must be at least 1"))
	}
	if c.Tmux.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tmux.command_timeout must be positive"))
	}
	if !c.Push.Disabled && c.Push.Subscriber == "" {
		errs = append(errs, fmt.Errorf("push.subscriber is required unless push.disabled is set"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel))
	}

	return errors.Join(errs...)
}

// EnsureStateDir creates the state directory (mode 0700: it holds the
// VAPID private key and session transcripts).
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state directory %s: %w", c.StateDir, err)
	}
	return nil
}
