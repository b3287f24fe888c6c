// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keylog writes and reads the keystroke log: a plain,
// append-only byte stream made of raw printable keystrokes and
// bracketed labels such as [ENTER] or [UP].
//
// The writer side is [Sink]. Tokens are buffered in memory and reach
// the file only on [Sink.Flush], which the relay calls once per input
// read so a burst of keystrokes lands in a single write. The file is
// opened with O_APPEND, so external readers and rotation between runs
// never see interleaved partial batches from this process.
//
// The reader side ([Parse], [CurrentLine]) serves companions that want
// the text a user is typing rather than the raw log.
package keylog

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/keytap/lib/escape"
	"github.com/bureau-foundation/keytap/lib/fault"
)

// DefaultFilename is the log file name inside the temporary directory.
const DefaultFilename = "keystrokes.log"

// DefaultPath returns the default log location: keystrokes.log in the
// platform temporary directory ($TMPDIR, falling back to /tmp).
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFilename)
}

// Sink is the append-only keystroke log writer. It is owned by a single
// goroutine (the relay loop) and is not safe for concurrent use.
type Sink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// Open opens path for appending, creating the file and any missing
// parent directories. Errors are classified as [fault.KindLogOpen].
func Open(path string) (*Sink, error) {
	if path == "" {
		return nil, fault.LogOpen("keystroke log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fault.LogOpen("creating keystroke log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fault.LogOpen("opening keystroke log %s: %w", path, err)
	}
	return &Sink{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Path returns the file path the sink writes to.
func (s *Sink) Path() string { return s.path }

// Append buffers one token. [ENTER] is followed by a newline so every
// submitted line ends a line of the log.
func (s *Sink) Append(token escape.Token) error {
	if label, ok := token.Label(); ok {
		if _, err := s.writer.WriteString(string(label)); err != nil {
			return err
		}
		if label == escape.LabelEnter {
			return s.writer.WriteByte('\n')
		}
		return nil
	}
	return s.writer.WriteByte(token.Byte())
}

// Flush writes every buffered token to the file.
func (s *Sink) Flush() error {
	return s.writer.Flush()
}

// Close flushes pending tokens and closes the file. Subsequent calls
// return nil.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
