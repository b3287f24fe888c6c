// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/keytap/lib/config"
	"github.com/bureau-foundation/keytap/lib/fault"
)

func TestParseRunDefaults(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	cfg, program, err := parseRun(nil)
	if err != nil {
		t.Fatalf("parseRun: %v", err)
	}
	if len(program) != 0 {
		t.Errorf("program = %v, want none", program)
	}
	if cfg.Session.NamePrefix != "ws-" || cfg.Session.NameCount != 9 {
		t.Errorf("session names = %s x%d", cfg.Session.NamePrefix, cfg.Session.NameCount)
	}
}

func TestParseRunFlagsOverrideFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keytap.yaml")
	if err := os.WriteFile(configPath, []byte("session:\n  name_prefix: file-\n  name_count: 4\nkeylog:\n  path: /tmp/from-file.log\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, program, err := parseRun([]string{
		"--config", configPath,
		"--session-count", "2",
		"--escape-timeout", "3ms",
		"--companion-delay", "250ms",
		"--debug",
		"--", "vim", "--clean",
	})
	if err != nil {
		t.Fatalf("parseRun: %v", err)
	}
	if !slices.Equal(program, []string{"vim", "--clean"}) {
		t.Errorf("program = %v", program)
	}
	if cfg.Session.NamePrefix != "file-" {
		t.Errorf("name_prefix = %q, want the file's value", cfg.Session.NamePrefix)
	}
	if cfg.Session.NameCount != 2 {
		t.Errorf("name_count = %d, want the flag's value", cfg.Session.NameCount)
	}
	if cfg.Keylog.Path != "/tmp/from-file.log" {
		t.Errorf("keylog.path = %q", cfg.Keylog.Path)
	}
	if cfg.Relay.EscapeTimeout != 3*time.Millisecond || cfg.Companion.Delay != 250*time.Millisecond {
		t.Errorf("timings = %v, %v", cfg.Relay.EscapeTimeout, cfg.Companion.Delay)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestParseRunInvalid(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	_, _, err := parseRun([]string{"--session-count", "0"})
	if !fault.Is(err, fault.KindConfig) {
		t.Errorf("parseRun = %v, want a config fault", err)
	}

	_, _, err = parseRun([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if !fault.Is(err, fault.KindConfig) {
		t.Errorf("missing config file: got %v, want a config fault", err)
	}

	if _, _, err := parseRun([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestRenderLogWithoutColor(t *testing.T) {
	renderer := lipgloss.NewRenderer(&bytes.Buffer{})
	renderer.SetColorProfile(termenv.Ascii)

	got := renderLog(renderer, []byte("ls[TAB][ENTER]\nvim\x17[LEFT][not a label]"))
	want := "ls[TAB][ENTER]\nvim^W[LEFT][not a label]\n"
	if got != want {
		t.Errorf("renderLog = %q, want %q", got, want)
	}
}

func TestShowCommand(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "keystrokes.log")
	if err := os.WriteFile(logPath, []byte("echo hi[ENTER]\ngit stat[BACKSPACE][BACKSPACE]atus"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var line bytes.Buffer
	if err := run([]string{"show", "--log-file", logPath, "--line"}, &line); err != nil {
		t.Fatalf("show --line: %v", err)
	}
	if got := line.String(); got != "git status\n" {
		t.Errorf("show --line = %q", got)
	}

	var raw bytes.Buffer
	if err := run([]string{"show", "--log-file", logPath, "--raw"}, &raw); err != nil {
		t.Fatalf("show --raw: %v", err)
	}
	if !strings.HasPrefix(raw.String(), "echo hi[ENTER]\n") {
		t.Errorf("show --raw = %q", raw.String())
	}

	var plain bytes.Buffer
	if err := run([]string{"show", "--log-file", logPath, "--no-color"}, &plain); err != nil {
		t.Fatalf("show: %v", err)
	}
	if got, want := plain.String(), "echo hi[ENTER]\ngit stat[BACKSPACE][BACKSPACE]atus\n"; got != want {
		t.Errorf("show = %q, want %q", got, want)
	}

	if err := run([]string{"show", "--log-file", filepath.Join(t.TempDir(), "missing.log")}, &plain); err == nil {
		t.Error("show on a missing log succeeded")
	}
}

func TestVersionAndUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"version"}, &out); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "keytap ") {
		t.Errorf("version output = %q", out.String())
	}
	if err := run([]string{"frobnicate"}, &out); err == nil {
		t.Error("unknown command accepted")
	}
}
