// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package intercept

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// NewLogger creates keytap's diagnostic logger. With a path, records
// are appended to that file as JSON lines and the returned closer
// closes it. Without one, records go to stderr: human-readable text
// when stderr is a terminal, JSON otherwise.
//
// While the relay runs, stderr shares the screen with the session, so
// anything above debug level there should be rare.
func NewLogger(level slog.Level, path string) (*slog.Logger, io.Closer, error) {
	options := &slog.HandlerOptions{Level: level}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fault.Config("creating diagnostic log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return nil, nil, fault.Config("opening diagnostic log: %w", err)
		}
		return slog.New(slog.NewJSONHandler(file, options)), file, nil
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
