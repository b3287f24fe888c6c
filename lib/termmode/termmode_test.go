// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package termmode

import (
	"os"
	"testing"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// openTerminal returns the slave side of a fresh pty pair to stand in
// for the user's terminal.
func openTerminal(t *testing.T) *os.File {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		slave.Close()
		master.Close()
	})
	return slave
}

func TestEnterRawAndRestore(t *testing.T) {
	terminal := openTerminal(t)
	fd := int(terminal.Fd())

	before, err := Current(fd)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if before.Lflag&unix.ICANON == 0 {
		t.Fatal("fresh pty is not in canonical mode; test premise broken")
	}

	controller := New(fd)
	if err := controller.EnterRaw(); err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}
	if !controller.Active() {
		t.Error("Active() = false after EnterRaw")
	}

	raw, err := Current(fd)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if raw.Lflag&(unix.ECHO|unix.ICANON|unix.ISIG) != 0 {
		t.Errorf("raw mode left lflag bits set: %#x", raw.Lflag)
	}
	if raw.Cc[unix.VMIN] != 1 || raw.Cc[unix.VTIME] != 0 {
		t.Errorf("VMIN=%d VTIME=%d, want 1 and 0", raw.Cc[unix.VMIN], raw.Cc[unix.VTIME])
	}
	if raw.Oflag != before.Oflag {
		t.Errorf("output flags changed: %#x -> %#x", before.Oflag, raw.Oflag)
	}

	snapshot, ok := controller.Snapshot()
	if !ok {
		t.Fatal("Snapshot() reported no snapshot after EnterRaw")
	}
	if snapshot.Termios() != before {
		t.Error("snapshot differs from the configuration captured before raw mode")
	}

	if err := controller.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after, err := Current(fd)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if after != before {
		t.Errorf("terminal not restored:\nbefore %+v\n after %+v", before, after)
	}
	if controller.Active() {
		t.Error("Active() = true after Restore")
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	terminal := openTerminal(t)
	fd := int(terminal.Fd())
	controller := New(fd)

	if err := controller.Restore(); err != nil {
		t.Fatalf("Restore before EnterRaw: %v", err)
	}
	if err := controller.EnterRaw(); err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}
	if err := controller.Restore(); err != nil {
		t.Fatalf("first Restore: %v", err)
	}

	// Change the mode behind the controller's back: a second Restore
	// must not touch the terminal again.
	modified, err := Current(fd)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	modified.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(fd, ioctlSetTermiosFlush, &modified); err != nil {
		t.Fatalf("setting termios: %v", err)
	}
	if err := controller.Restore(); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	current, err := Current(fd)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Lflag&unix.ECHO != 0 {
		t.Error("second Restore reapplied the snapshot")
	}
}

func TestEnterRawTwiceFails(t *testing.T) {
	terminal := openTerminal(t)
	controller := New(int(terminal.Fd()))
	if err := controller.EnterRaw(); err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}
	t.Cleanup(func() { controller.Restore() })

	err := controller.EnterRaw()
	if !fault.Is(err, fault.KindTerminal) {
		t.Errorf("second EnterRaw: got %v, want a terminal fault", err)
	}
}

func TestEnterRawOnPipeFails(t *testing.T) {
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer reader.Close()
	defer writer.Close()

	fd := int(reader.Fd())
	if IsTerminal(fd) {
		t.Fatal("IsTerminal reported a pipe as a terminal")
	}
	controller := New(fd)
	if err := controller.EnterRaw(); !fault.Is(err, fault.KindTerminal) {
		t.Errorf("EnterRaw on a pipe: got %v, want a terminal fault", err)
	}
	if controller.Active() {
		t.Error("failed EnterRaw left the controller active")
	}
	if _, ok := controller.Snapshot(); ok {
		t.Error("failed EnterRaw recorded a snapshot")
	}
}

func TestRawModeLeavesInputTranslation(t *testing.T) {
	var original unix.Termios
	original.Iflag = unix.ICRNL
	original.Lflag = unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw := RawMode(original)
	if raw.Iflag != unix.ICRNL {
		t.Errorf("iflag changed to %#x", raw.Iflag)
	}
	if raw.Lflag != unix.IEXTEN {
		t.Errorf("lflag = %#x, want only IEXTEN left", raw.Lflag)
	}
}
