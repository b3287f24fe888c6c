// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file when --config is not
// given.
const EnvironmentVariable = "KEYTAP_CONFIG"

// Config is the complete keytap configuration.
type Config struct {
	// Session configures the primary program and its name.
	Session SessionConfig `yaml:"session"`

	// Companion configures the optional helper process.
	Companion CompanionConfig `yaml:"companion"`

	// Keylog configures the keystroke log.
	Keylog KeylogConfig `yaml:"keylog"`

	// Relay tunes the event loop.
	Relay RelayConfig `yaml:"relay"`

	// Logging configures keytap's own diagnostics.
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig configures the program attached to the pty.
type SessionConfig struct {
	// Command is the argv run on the pty. "{session}" in any argument is
	// replaced by the chosen session name. Empty runs
	// "tmux new-session -A -s {session}" against TmuxSocket.
	Command []string `yaml:"command"`

	// NamePrefix and NameCount define the candidate names
	// NamePrefix1..NamePrefixN, probed in order.
	// Default: ws-, 9
	NamePrefix string `yaml:"name_prefix"`
	NameCount  int    `yaml:"name_count"`

	// TmuxSocket selects a dedicated tmux server. Empty uses the
	// user's default server.
	TmuxSocket string `yaml:"tmux_socket"`

	// TmuxConfig is passed as -f when keytap starts the tmux server.
	// Empty lets tmux find ~/.tmux.conf.
	TmuxConfig string `yaml:"tmux_config"`
}

// CompanionConfig configures the helper started after the session.
type CompanionConfig struct {
	// Command is the companion's argv. Empty disables the companion.
	Command []string `yaml:"command"`

	// Delay between launching the session and starting the companion.
	// Default: 2s
	Delay time.Duration `yaml:"delay"`

	// SessionEnv names the environment variable that carries the
	// session name. Default: TMUX_SESSION
	SessionEnv string `yaml:"session_env"`

	// Stdio selects the companion's standard streams: "null" for
	// /dev/null, "pty" for the session's terminal. Default: null
	Stdio string `yaml:"stdio"`
}

// KeylogConfig configures the keystroke log.
type KeylogConfig struct {
	// Path of the append-only log. Default: ${TMPDIR:-/tmp}/keystrokes.log
	Path string `yaml:"path"`
}

// RelayConfig tunes the event loop.
type RelayConfig struct {
	// EscapeTimeout is how long a lone ESC waits for the rest of a
	// sequence. Default: 1ms
	EscapeTimeout time.Duration `yaml:"escape_timeout"`
}

// LoggingConfig configures keytap's diagnostic log.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// File receives diagnostics as JSON lines. Empty writes to stderr,
	// which the session's screen shares while keytap runs.
	File string `yaml:"file"`
}

// Companion standard stream choices.
const (
	StdioNull = "null"
	StdioPTY  = "pty"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Default returns the configuration used when no file is given, and the
// base that a file is merged into.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			NamePrefix: "ws-",
			NameCount:  9,
		},
		Companion: CompanionConfig{
			Delay:      2 * time.Second,
			SessionEnv: "TMUX_SESSION",
			Stdio:      StdioNull,
		},
		Keylog: KeylogConfig{
			Path: filepath.Join(os.TempDir(), "keystrokes.log"),
		},
		Relay: RelayConfig{
			EscapeTimeout: time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by KEYTAP_CONFIG, or returns Default when
// the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, on top of
// Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration on top of Default and expands
// variables in path fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}

	c.Keylog.Path = expandVars(c.Keylog.Path, vars)
	c.Logging.File = expandVars(c.Logging.File, vars)
	c.Session.TmuxSocket = expandVars(c.Session.TmuxSocket, vars)
	c.Session.TmuxConfig = expandVars(c.Session.TmuxConfig, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking vars
// before the environment.
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

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.NamePrefix == "" {
		errs = append(errs, fmt.Errorf("session.name_prefix is required"))
	}
	if c.Session.NameCount < 1 {
		errs = append(errs, fmt.Errorf("session.name_count must be at least 1, got %d", c.Session.NameCount))
	}
	if len(c.Session.Command) > 0 && strings.TrimSpace(c.Session.Command[0]) == "" {
		errs = append(errs, fmt.Errorf("session.command has an empty program name"))
	}

	if len(c.Companion.Command) > 0 && strings.TrimSpace(c.Companion.Command[0]) == "" {
		errs = append(errs, fmt.Errorf("companion.command has an empty program name"))
	}
	if c.Companion.Delay < 0 {
		errs = append(errs, fmt.Errorf("companion.delay must not be negative, got %v", c.Companion.Delay))
	}
	if c.Companion.SessionEnv == "" || strings.ContainsAny(c.Companion.SessionEnv, "= \t") {
		errs = append(errs, fmt.Errorf("companion.session_env must be a variable name, got %q", c.Companion.SessionEnv))
	}
	if c.Companion.Stdio != StdioNull && c.Companion.Stdio != StdioPTY {
		errs = append(errs, fmt.Errorf("companion.stdio must be %q or %q, got %q", StdioNull, StdioPTY, c.Companion.Stdio))
	}

	if c.Keylog.Path == "" {
		errs = append(errs, fmt.Errorf("keylog.path is required"))
	}

	if c.Relay.EscapeTimeout <= 0 || c.Relay.EscapeTimeout > time.Second {
		errs = append(errs, fmt.Errorf("relay.escape_timeout must be in (0, 1s], got %v", c.Relay.EscapeTimeout))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns the slog level for Logging.Level, defaulting to Info
// for unrecognized values.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
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
