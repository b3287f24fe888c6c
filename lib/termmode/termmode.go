// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package termmode switches the controlling terminal into the
// character-at-a-time mode the keystroke relay needs and guarantees the
// original line discipline comes back.
//
// The mode applied by [Controller.EnterRaw] clears ICANON (no line
// buffering), ECHO (the session echoes, not the local tty) and ISIG
// (Ctrl-C and Ctrl-Z arrive as bytes instead of signals), with VMIN=1
// and VTIME=0. Output processing and input translation are untouched;
// this is deliberately narrower than cfmakeraw.
//
// A Controller holds at most one snapshot. [Controller.Restore] is
// idempotent and is the single restoration point for every exit path.
package termmode

import (
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// Snapshot is the terminal configuration captured before raw mode.
type Snapshot struct {
	termios unix.Termios
}

// Termios returns the captured configuration.
func (s Snapshot) Termios() unix.Termios { return s.termios }

// Controller owns the line discipline of one terminal descriptor.
type Controller struct {
	fd int

	mu       sync.Mutex
	snapshot *Snapshot
	restored bool
}

// New returns a controller for the terminal open on fd.
func New(fd int) *Controller {
	return &Controller{fd: fd}
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// Current reads the terminal configuration of fd.
func Current(fd int) (unix.Termios, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return unix.Termios{}, err
	}
	return *termios, nil
}

// RawMode returns original with the relay's raw settings applied.
func RawMode(original unix.Termios) unix.Termios {
	raw := original
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	return raw
}

// EnterRaw captures the current configuration and applies raw mode.
// Pending input is discarded as the mode changes. It fails if raw mode
// was already entered through this controller; nothing is changed on
// failure.
func (c *Controller) EnterRaw() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil {
		return fault.Terminal("raw mode already entered on fd %d", c.fd)
	}

	original, err := Current(c.fd)
	if err != nil {
		return fault.Terminal("reading terminal mode on fd %d: %w", c.fd, err)
	}
	raw := RawMode(original)
	if err := unix.IoctlSetTermios(c.fd, ioctlSetTermiosFlush, &raw); err != nil {
		return fault.Terminal("applying raw mode on fd %d: %w", c.fd, err)
	}

	c.snapshot = &Snapshot{termios: original}
	c.restored = false
	return nil
}

// Restore reapplies the captured configuration. Only the first call
// after EnterRaw touches the terminal; later calls and calls without a
// snapshot return nil.
func (c *Controller) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil || c.restored {
		return nil
	}
	c.restored = true
	original := c.snapshot.termios
	if err := unix.IoctlSetTermios(c.fd, ioctlSetTermiosFlush, &original); err != nil {
		return fault.Terminal("restoring terminal mode on fd %d: %w", c.fd, err)
	}
	return nil
}

// Active reports whether raw mode is applied and not yet restored.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot != nil && !c.restored
}

// Snapshot returns the captured configuration, and false before
// EnterRaw succeeded.
func (c *Controller) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}
