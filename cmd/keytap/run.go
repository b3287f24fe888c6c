// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/keytap/lib/config"
	"github.com/bureau-foundation/keytap/lib/fault"
	"github.com/bureau-foundation/keytap/lib/intercept"
)

// runParams holds the run command's flags. Zero values mean "not given";
// only flags the user set override the configuration file.
type runParams struct {
	configPath     string
	logFile        string
	sessionPrefix  string
	sessionCount   int
	tmuxSocket     string
	companionDelay time.Duration
	escapeTimeout  time.Duration
	diagnosticLog  string
	debug          bool
}

func runFlags(params *runParams) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flagSet.StringVar(&params.configPath, "config", "", "configuration file (default: $KEYTAP_CONFIG)")
	flagSet.StringVar(&params.logFile, "log-file", "", "keystroke log path")
	flagSet.StringVar(&params.sessionPrefix, "session-prefix", "", "session name prefix")
	flagSet.IntVar(&params.sessionCount, "session-count", 0, "number of candidate session names")
	flagSet.StringVar(&params.tmuxSocket, "tmux-socket", "", "tmux server socket (default: the user's server)")
	flagSet.DurationVar(&params.companionDelay, "companion-delay", 0, "delay before the companion starts")
	flagSet.DurationVar(&params.escapeTimeout, "escape-timeout", 0, "how long a lone ESC waits for a sequence")
	flagSet.StringVar(&params.diagnosticLog, "diagnostic-log", "", "write keytap's own log to this file")
	flagSet.BoolVar(&params.debug, "debug", false, "log at debug level")
	return flagSet
}

// parseRun parses run arguments into a validated configuration and the
// optional program after "--".
func parseRun(args []string) (*config.Config, []string, error) {
	var params runParams
	flagSet := runFlags(&params)
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig(params.configPath)
	if err != nil {
		return nil, nil, err
	}

	if flagSet.Changed("log-file") {
		cfg.Keylog.Path = params.logFile
	}
	if flagSet.Changed("session-prefix") {
		cfg.Session.NamePrefix = params.sessionPrefix
	}
	if flagSet.Changed("session-count") {
		cfg.Session.NameCount = params.sessionCount
	}
	if flagSet.Changed("tmux-socket") {
		cfg.Session.TmuxSocket = params.tmuxSocket
	}
	if flagSet.Changed("companion-delay") {
		cfg.Companion.Delay = params.companionDelay
	}
	if flagSet.Changed("escape-timeout") {
		cfg.Relay.EscapeTimeout = params.escapeTimeout
	}
	if flagSet.Changed("diagnostic-log") {
		cfg.Logging.File = params.diagnosticLog
	}
	if params.debug {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fault.Config("invalid configuration:\n%w", err)
	}
	return cfg, flagSet.Args(), nil
}

// loadConfig reads path, or KEYTAP_CONFIG, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fault.Config("loading configuration: %w", err)
	}
	return cfg, nil
}

func runCmd(args []string) error {
	cfg, program, err := parseRun(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, closer, err := intercept.NewLogger(cfg.Logging.SlogLevel(), cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	outcome, err := intercept.Run(intercept.Options{
		Config:  cfg,
		Program: program,
		Logger:  logger,
	})
	if err != nil {
		if outcome.Session != "" {
			return fmt.Errorf("session %s: %w", outcome.Session, err)
		}
		return err
	}
	return nil
}
