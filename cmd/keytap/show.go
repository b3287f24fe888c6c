// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/keytap/lib/escape"
	"github.com/bureau-foundation/keytap/lib/keylog"
)

type showParams struct {
	configPath string
	logFile    string
	raw        bool
	line       bool
	noColor    bool
}

func showFlags(params *showParams) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
	flagSet.StringVar(&params.configPath, "config", "", "configuration file (default: $KEYTAP_CONFIG)")
	flagSet.StringVar(&params.logFile, "log-file", "", "keystroke log path (default: from configuration)")
	flagSet.BoolVar(&params.raw, "raw", false, "print the log bytes unchanged")
	flagSet.BoolVar(&params.line, "line", false, "print only the current line, with backspaces applied")
	flagSet.BoolVar(&params.noColor, "no-color", false, "do not highlight labels")
	return flagSet
}

func showCmd(args []string, stdout io.Writer) error {
	var params showParams
	flagSet := showFlags(&params)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("show takes no arguments, got %q", flagSet.Args())
	}

	path := params.logFile
	if path == "" {
		cfg, err := loadConfig(params.configPath)
		if err != nil {
			return err
		}
		path = cfg.Keylog.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading keystroke log: %w", err)
	}

	switch {
	case params.raw:
		_, err = stdout.Write(data)
	case params.line:
		_, err = fmt.Fprintln(stdout, keylog.CurrentLine(data))
	default:
		renderer := lipgloss.NewRenderer(stdout)
		if params.noColor || os.Getenv("NO_COLOR") != "" {
			renderer.SetColorProfile(termenv.Ascii)
		}
		_, err = io.WriteString(stdout, renderLog(renderer, data))
	}
	return err
}

// renderLog formats log data for reading: labels are highlighted and
// control characters the user typed are shown in caret notation.
func renderLog(renderer *lipgloss.Renderer, data []byte) string {
	labelStyle := renderer.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	enterStyle := renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	var out strings.Builder
	for _, entry := range keylog.Parse(data) {
		if entry.IsLabel() {
			if entry.Label == escape.LabelEnter {
				out.WriteString(enterStyle.Render(string(entry.Label)))
				out.WriteByte('\n')
				continue
			}
			out.WriteString(labelStyle.Render(string(entry.Label)))
			continue
		}
		for _, c := range []byte(entry.Text) {
			switch {
			case c == '\n':
				out.WriteByte('\n')
			case c < 0x20:
				out.WriteByte('^')
				out.WriteByte(c + 0x40)
			case c == 0x7f:
				out.WriteString("^?")
			default:
				out.WriteByte(c)
			}
		}
	}
	if text := out.String(); text != "" && !strings.HasSuffix(text, "\n") {
		out.WriteByte('\n')
	}
	return out.String()
}
