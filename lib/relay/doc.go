// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay runs the single-threaded readiness loop that sits
// between the user's terminal and the pty master.
//
// Each iteration probes the primary for exit, computes a poll timeout
// (the escape grace window while a lone ESC is pending, otherwise the
// companion's start deadline, otherwise infinite), and polls standard
// input, the master, and a signal wake pipe:
//
//   - Keyboard bytes go through an [escape.Decoder]. Forward bytes are
//     written to the master; tokens are appended to the keystroke log,
//     which is flushed once per read.
//   - Master output is copied to standard output verbatim.
//   - Signals arrive through os/signal and a forwarding goroutine that
//     writes the signal number into a non-blocking self-pipe. SIGWINCH
//     resynchronizes the window size, SIGINT/SIGTERM/SIGHUP stop the
//     loop, SIGCHLD only wakes it so the next exit probe runs.
//
// The forwarding goroutine is the only concurrency: it never touches
// the decoder, the master or the log.
package relay
