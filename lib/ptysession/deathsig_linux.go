// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import "syscall"

// setDeathSignal asks the kernel to send sig to the child when its
// parent thread exits.
//
// The kernel tracks the forking OS thread, not the process. Go keeps
// that thread alive unless a goroutine exits while holding
// runtime.LockOSThread, so StartIfDue must never run on a locked
// goroutine or the companion is killed when that goroutine returns.
func setDeathSignal(attributes *syscall.SysProcAttr, sig syscall.Signal) {
	attributes.Pdeathsig = sig
}
