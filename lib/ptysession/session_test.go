// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"os"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/fault"
	"github.com/bureau-foundation/keytap/lib/testutil"
)

func allocate(t *testing.T) *Session {
	t.Helper()
	session, err := Allocate()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// readUntil collects master output until it contains want.
func readUntil(t *testing.T, master *os.File, want string) string {
	t.Helper()
	result := make(chan string, 1)
	go func() {
		var collected strings.Builder
		buffer := make([]byte, 256)
		for !strings.Contains(collected.String(), want) {
			count, err := master.Read(buffer)
			collected.Write(buffer[:count])
			if err != nil {
				break
			}
		}
		result <- collected.String()
	}()
	output := testutil.RequireReceive(t, result, 10*time.Second, "reading %q from master", want)
	if !strings.Contains(output, want) {
		t.Fatalf("master output %q does not contain %q", output, want)
	}
	return output
}

func TestSpawnAttachesSlaveAsControllingTerminal(t *testing.T) {
	session := allocate(t)
	if !strings.HasPrefix(session.SlavePath(), "/dev/") {
		t.Errorf("SlavePath() = %q", session.SlavePath())
	}

	program := Program{Args: []string{"sh", "-c", "tty; echo session=$KEYTAP_SESSION"}}.ForSession("ws-4")
	if err := session.Spawn(program); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if session.Pid() <= 0 {
		t.Fatalf("Pid() = %d after Spawn", session.Pid())
	}

	output := readUntil(t, session.Master(), "session=ws-4")
	if !strings.Contains(output, session.SlavePath()) {
		t.Errorf("child's tty is not the slave %s: %q", session.SlavePath(), output)
	}

	status, err := session.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if status.Code() != 0 {
		t.Errorf("exit = %v, want 0", status)
	}
}

func TestExitedThenWaitReapsOnce(t *testing.T) {
	session := allocate(t)
	if exited, err := session.Exited(); exited || err != nil {
		t.Fatalf("Exited() before Spawn = %v, %v", exited, err)
	}
	if err := session.Spawn(Program{Args: []string{"sh", "-c", "exit 3"}}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			exited, err := session.Exited()
			if err != nil {
				t.Errorf("Exited: %v", err)
				return
			}
			if exited {
				return
			}
			runtime.Gosched()
		}
	}()
	testutil.RequireClosed(t, done, 10*time.Second, "waiting for child exit")

	for attempt := 0; attempt < 2; attempt++ {
		status, err := session.Wait()
		if err != nil {
			t.Fatalf("Wait #%d: %v", attempt, err)
		}
		if status.Code() != 3 || status.Signaled() {
			t.Errorf("Wait #%d = %v, want exit status 3", attempt, status)
		}
	}
}

func TestSignalAndExitStatus(t *testing.T) {
	session := allocate(t)
	if err := session.Spawn(Program{Args: []string{"sleep", "30"}}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := session.Signal(unix.SIGTERM); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	status, err := session.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !status.Signaled() || status.Signal() != unix.SIGTERM {
		t.Errorf("status = %v, want killed by SIGTERM", status)
	}
	if status.Code() != 128+int(unix.SIGTERM) {
		t.Errorf("Code() = %d, want %d", status.Code(), 128+int(unix.SIGTERM))
	}
	if err := session.Signal(unix.SIGTERM); err != nil {
		t.Errorf("Signal after reap: %v", err)
	}
}

func TestSpawnFailures(t *testing.T) {
	session := allocate(t)
	if err := session.Spawn(Program{}); !fault.Is(err, fault.KindSpawn) {
		t.Errorf("empty program: got %v, want spawn fault", err)
	}
	if err := session.Spawn(Program{Args: []string{"keytap-no-such-program"}}); !fault.Is(err, fault.KindSpawn) {
		t.Errorf("missing program: got %v, want spawn fault", err)
	}

	if err := session.Spawn(Program{Args: []string{"true"}}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := session.Spawn(Program{Args: []string{"true"}}); !fault.Is(err, fault.KindSpawn) {
		t.Errorf("second Spawn: got %v, want spawn fault", err)
	}
	if _, err := session.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	session := allocate(t)
	want := Geometry{Rows: 42, Columns: 137}
	if err := session.PropagateGeometry(want); err != nil {
		t.Fatalf("PropagateGeometry: %v", err)
	}
	got, err := QueryGeometry(session.Master())
	if err != nil {
		t.Fatalf("QueryGeometry: %v", err)
	}
	if got != want {
		t.Errorf("QueryGeometry = %+v, want %+v", got, want)
	}
	if got.String() != "137x42" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	session, err := Allocate()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := session.Spawn(Program{Args: []string{"true"}}); !fault.Is(err, fault.KindSpawn) {
		t.Errorf("Spawn after Close: got %v, want spawn fault", err)
	}
}

func TestForSession(t *testing.T) {
	program := Program{
		Args: []string{"tmux", "new-session", "-A", "-s", "{session}"},
		Env:  []string{"PATH=/bin", SessionEnv + "=stale"},
	}
	got := program.ForSession("ws-2")
	if want := []string{"tmux", "new-session", "-A", "-s", "ws-2"}; !slices.Equal(got.Args, want) {
		t.Errorf("Args = %v, want %v", got.Args, want)
	}
	if want := []string{"PATH=/bin", SessionEnv + "=ws-2"}; !slices.Equal(got.Env, want) {
		t.Errorf("Env = %v, want %v", got.Env, want)
	}
	if program.Args[4] != "{session}" {
		t.Error("ForSession modified the original program")
	}
}
