// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"syscall"
)

// Reason explains why the loop stopped.
type Reason int

const (
	// ReasonSessionExited means the exit probe found the primary
	// terminated.
	ReasonSessionExited Reason = iota + 1

	// ReasonSignaled means a termination signal was received.
	ReasonSignaled

	// ReasonEndOfInput means standard input reached end-of-file.
	ReasonEndOfInput

	// ReasonHangup means the master reported end-of-file or EIO: no
	// process holds the slave side any more.
	ReasonHangup
)

func (r Reason) String() string {
	switch r {
	case ReasonSessionExited:
		return "session exited"
	case ReasonSignaled:
		return "signaled"
	case ReasonEndOfInput:
		return "end of input"
	case ReasonHangup:
		return "hangup"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Result describes a finished loop.
type Result struct {
	Reason Reason

	// Signal is the termination signal for ReasonSignaled.
	Signal syscall.Signal

	// InputBytes counts bytes read from standard input.
	InputBytes int64

	// OutputBytes counts bytes copied from the master to the output.
	OutputBytes int64
}
