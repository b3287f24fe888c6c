// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package intercept wires the keystroke interceptor together: it opens
// the keystroke log, allocates the pty, picks a free session name,
// spawns the session, arms the companion, routes signals, switches the
// terminal to raw mode, and runs the relay loop.
//
// Teardown runs in a fixed order on every exit path, including setup
// failures: stop signal routing, close the log, close the master,
// reap the primary, stop the companion, restore the terminal. A failure
// before raw mode leaves the terminal untouched.
package intercept
