// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"syscall"
	"testing"
)

func TestSetDeathSignal(t *testing.T) {
	attributes := &syscall.SysProcAttr{Setpgid: true}
	setDeathSignal(attributes, syscall.SIGTERM)
	if attributes.Pdeathsig != syscall.SIGTERM {
		t.Errorf("Pdeathsig = %v, want SIGTERM", attributes.Pdeathsig)
	}
	if !attributes.Setpgid {
		t.Error("setDeathSignal cleared other attributes")
	}
}
