// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/clock"
	"github.com/bureau-foundation/keytap/lib/fault"
)

// DefaultCompanionEnv carries the session name to the companion.
const DefaultCompanionEnv = "TMUX_SESSION"

// Companion is an auxiliary process started a fixed delay after the
// primary session. It learns the session name from an environment
// variable, is sent SIGTERM if keytap dies (Linux), and is stopped by
// the controller after the primary has been reaped.
//
// The relay loop drives the delay: it asks [Companion.Due] for the
// deadline, folds it into its poll timeout, and calls
// [Companion.StartIfDue] on every iteration.
type Companion struct {
	program    Program
	delay      time.Duration
	sessionEnv string
	clock      clock.Clock

	mu        sync.Mutex
	armed     bool
	due       time.Time
	session   string
	stdioPath string
	pid       int
	reaped    bool
	status    ExitStatus
}

// NewCompanion returns a companion that runs program delay after Arm.
// An empty sessionEnv uses DefaultCompanionEnv.
func NewCompanion(program Program, delay time.Duration, sessionEnv string, c clock.Clock) *Companion {
	if sessionEnv == "" {
		sessionEnv = DefaultCompanionEnv
	}
	return &Companion{
		program:    program,
		delay:      delay,
		sessionEnv: sessionEnv,
		clock:      c,
	}
}

// Arm schedules the start for delay from now. The companion's standard
// streams are opened from stdioPath at start time (os.DevNull when
// empty). Arming again before the start reschedules it.
func (c *Companion) Arm(sessionName, stdioPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pid != 0 {
		return
	}
	if stdioPath == "" {
		stdioPath = os.DevNull
	}
	c.armed = true
	c.due = c.clock.Now().Add(c.delay)
	c.session = sessionName
	c.stdioPath = stdioPath
}

// Due returns the start deadline while the companion is armed and not
// yet started.
func (c *Companion) Due() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.due, c.armed
}

// StartIfDue starts the companion when it is armed and its deadline has
// passed. It reports whether a start was attempted. A failed start is
// not retried.
func (c *Companion) StartIfDue() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed || c.clock.Now().Before(c.due) {
		return false, nil
	}
	c.armed = false

	stdio, err := os.OpenFile(c.stdioPath, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return true, fault.Spawn("opening companion stdio %s: %w", c.stdioPath, err)
	}
	defer stdio.Close()

	program := Program{
		Args: c.program.Args,
		Env:  withEnv(c.program.Env, c.sessionEnv, c.session),
		Dir:  c.program.Dir,
	}
	attributes := &syscall.SysProcAttr{Setpgid: true}
	setDeathSignal(attributes, syscall.SIGTERM)

	pid, err := program.start([]*os.File{stdio, stdio, stdio}, attributes)
	if err != nil {
		return true, err
	}
	c.pid = pid
	return true, nil
}

// Pid returns the companion's process ID, or 0 when it never started.
func (c *Companion) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// Stop cancels a pending start, or sends SIGTERM to a running companion
// and reaps it. Calling Stop again returns the recorded status.
func (c *Companion) Stop() (ExitStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armed = false
	if c.pid == 0 {
		return ExitStatus{}, nil
	}
	if c.reaped {
		return c.status, nil
	}
	if err := unix.Kill(c.pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return ExitStatus{}, fmt.Errorf("signaling companion pid %d: %w", c.pid, err)
	}
	status, err := reap(c.pid)
	if err != nil {
		return ExitStatus{}, err
	}
	c.reaped = true
	c.status = status
	return status, nil
}
