// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ptysession owns the pseudo-terminal pair and the processes
// attached to it.
//
// [Allocate] opens a master/slave pair. [Session.Spawn] starts the
// primary program (tmux by default) in a new session with the slave as
// its controlling terminal and standard streams, then closes the slave
// in the parent so that the master observes a hangup once the last
// process on the slave side exits.
//
// Child state is tracked by pid with wait4(2) rather than through
// os/exec, because the relay loop needs a non-blocking exit probe
// ([Session.Exited]) as well as a final blocking reap ([Session.Wait]),
// and the primary must be reaped exactly once across both.
//
// [SelectName] picks the first inactive session name from a fixed
// candidate list ("ws-1" to "ws-9" by default). [Companion] is an
// optional helper process started a fixed delay after the primary.
package ptysession
