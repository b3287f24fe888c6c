// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package ptysession

import "syscall"

// setDeathSignal is a no-op: parent-death signals are Linux-only, and
// the controller stops the companion explicitly on every exit path.
func setDeathSignal(*syscall.SysProcAttr, syscall.Signal) {}
