// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// Session is an allocated pty pair and the primary process attached to
// its slave side.
type Session struct {
	master    *os.File
	masterFD  int
	slave     *os.File
	slavePath string

	mu     sync.Mutex
	pid    int
	reaped bool
	status ExitStatus

	closeOnce sync.Once
	closeErr  error
}

// Allocate opens a new pty pair. Any failure is an allocation fault and
// leaves nothing open.
func Allocate() (*Session, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fault.Allocation("allocating pseudo-terminal: %w", err)
	}
	return &Session{
		master: master,
		// Fd switches the master to blocking mode; the relay only reads
		// it after poll reports it readable.
		masterFD:  int(master.Fd()),
		slave:     slave,
		slavePath: slave.Name(),
	}, nil
}

// SlavePath returns the filesystem path of the slave side.
func (s *Session) SlavePath() string { return s.slavePath }

// Master returns the master side of the pair.
func (s *Session) Master() *os.File { return s.master }

// MasterFD returns the master's file descriptor.
func (s *Session) MasterFD() int { return s.masterFD }

// Spawn starts program with the slave as its standard streams and
// controlling terminal, in a new session. The slave is closed in the
// parent once the child holds it. Spawn may be called once.
func (s *Session) Spawn(program Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid != 0 {
		return fault.Spawn("session already running pid %d", s.pid)
	}
	if s.slave == nil {
		return fault.Spawn("pseudo-terminal slave already closed")
	}

	pid, err := program.start([]*os.File{s.slave, s.slave, s.slave}, &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = slave
	})
	if err != nil {
		return err
	}
	s.pid = pid

	// The child has its own copies via fd 0/1/2.
	s.slave.Close()
	s.slave = nil
	return nil
}

// Pid returns the primary's process ID, or 0 before Spawn.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Exited reports, without blocking, whether the primary has terminated.
// A terminated primary is reaped here and its status kept for Wait.
func (s *Session) Exited() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid == 0 {
		return false, nil
	}
	if s.reaped {
		return true, nil
	}
	var status unix.WaitStatus
	for {
		pid, err := unix.Wait4(s.pid, &status, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("probing pid %d: %w", s.pid, err)
		}
		if pid == 0 {
			return false, nil
		}
		s.reaped = true
		s.status = ExitStatus{status: status}
		return true, nil
	}
}

// Wait blocks until the primary terminates and returns its status. The
// process is reaped exactly once; later calls return the same status.
func (s *Session) Wait() (ExitStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid == 0 {
		return ExitStatus{}, fmt.Errorf("no process spawned")
	}
	if s.reaped {
		return s.status, nil
	}
	status, err := reap(s.pid)
	if err != nil {
		return ExitStatus{}, err
	}
	s.reaped = true
	s.status = status
	return status, nil
}

// Signal sends sig to the primary unless it has already been reaped.
func (s *Session) Signal(sig unix.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pid == 0 || s.reaped {
		return nil
	}
	if err := unix.Kill(s.pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signaling pid %d with %v: %w", s.pid, sig, err)
	}
	return nil
}

// PropagateGeometry pushes g to the pty, which delivers SIGWINCH to the
// session's foreground process group.
func (s *Session) PropagateGeometry(g Geometry) error {
	return SetGeometry(s.master, g)
}

// Close closes the master (and the slave if Spawn never ran) exactly
// once. Closing the master hangs up the slave side.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		slave := s.slave
		s.slave = nil
		s.mu.Unlock()
		if slave != nil {
			slave.Close()
		}
		s.closeErr = s.master.Close()
	})
	return s.closeErr
}

// reap blocks in wait4 until pid terminates, retrying interrupted waits.
func reap(pid int) (ExitStatus, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return ExitStatus{}, fmt.Errorf("waiting for pid %d: %w", pid, err)
		}
		return ExitStatus{status: status}, nil
	}
}

// ExitStatus describes how a reaped process terminated.
type ExitStatus struct {
	status unix.WaitStatus
}

// Code returns the exit code, or 128 plus the signal number for a
// process killed by a signal (the shell convention).
func (e ExitStatus) Code() int {
	if e.status.Signaled() {
		return 128 + int(e.status.Signal())
	}
	return e.status.ExitStatus()
}

// Signaled reports whether the process was killed by a signal.
func (e ExitStatus) Signaled() bool { return e.status.Signaled() }

// Signal returns the terminating signal when Signaled is true.
func (e ExitStatus) Signal() unix.Signal { return e.status.Signal() }

func (e ExitStatus) String() string {
	if e.status.Signaled() {
		return fmt.Sprintf("killed by %v", e.status.Signal())
	}
	return fmt.Sprintf("exit status %d", e.status.ExitStatus())
}

// lookPath resolves argv[0] the way a shell would.
func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}
