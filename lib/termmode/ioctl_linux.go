// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package termmode

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios      = unix.TCGETS
	ioctlSetTermiosFlush = unix.TCSETSF
)
