// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux provides a typed interface to the tmux server that hosts
// keytap's recorded sessions.
//
// keytap normally attaches to the user's own tmux server so that
// "ws-1".."ws-9" are ordinary sessions the user can reach from any
// terminal. A Server with an empty socket path targets
// that default server; a non-empty path injects -S on every command and
// isolates the sessions (tests always do this, see NewTestServer).
package tmux

import (
	"fmt"
	"os/exec"
	"strings"
)

// Binary is the tmux executable looked up in PATH.
const Binary = "tmux"

// Server represents a tmux server: the user's default server when
// socketPath is empty, otherwise the server listening on socketPath.
type Server struct {
	socketPath string
	configFile string // passed as "-f <path>" when a command may start the server
}

// NewServer returns a Server for the given socket path. An empty
// socketPath targets the default server.
//
// configFile controls which configuration file tmux loads when the
// server starts. Pass "/dev/null" to keep ~/.tmux.conf out of the
// picture; empty uses tmux's own resolution, which is what an
// interactive user normally wants.
func NewServer(socketPath, configFile string) *Server {
	return &Server{
		socketPath: socketPath,
		configFile: configFile,
	}
}

// globalArgs returns the flags selecting this server. withConfig adds -f
// for commands that may start the server.
func (s *Server) globalArgs(withConfig bool) []string {
	var args []string
	if withConfig && s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	if s.socketPath != "" {
		args = append(args, "-S", s.socketPath)
	}
	return args
}

// AttachArgs returns the full argv (including the tmux binary) that
// attaches to the named session, creating it first when it does not
// exist: tmux new-session -A -s <name>. This is the default program
// keytap runs on the pty.
func (s *Server) AttachArgs(sessionName string) []string {
	args := append([]string{Binary}, s.globalArgs(true)...)
	return append(args, "new-session", "-A", "-s", sessionName)
}

// NewSession creates a detached session on this server. If command is
// non-empty, the session runs that command instead of the default
// shell.
func (s *Server) NewSession(sessionName string, command ...string) error {
	args := append(s.globalArgs(true), "new-session", "-d", "-s", sessionName)
	args = append(args, command...)
	cmd := exec.Command(Binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// HasSession reports whether a session with the given name exists on
// this server. Returns false if the server is not running.
//
// The target is given as "=name" so tmux matches the name exactly
// instead of by prefix: "ws-1" must not be reported active because
// "ws-10" exists.
func (s *Server) HasSession(sessionName string) bool {
	args := append(s.globalArgs(false), "has-session", "-t", "="+sessionName)
	return exec.Command(Binary, args...).Run() == nil
}

// ListSessions returns the names of all sessions on this server in one
// tmux call. A server that is not running has no sessions.
func (s *Server) ListSessions() ([]string, error) {
	output, err := s.run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if isServerGone(err.Error()) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// KillServer terminates the entire server. Returns nil if the server was
// already stopped. Refuses to act on the default server: keytap never
// tears down the user's own tmux.
func (s *Server) KillServer() error {
	if s.socketPath == "" {
		return fmt.Errorf("refusing to kill the default tmux server")
	}
	output, err := exec.Command(Binary, "-S", s.socketPath, "kill-server").CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// The "server exited unexpectedly" message appears when the
		// socket file lingers briefly after the server process exited.
		if isServerGone(outputString) {
			return nil
		}
		return fmt.Errorf("tmux kill-server: %w (%s)", err, outputString)
	}
	return nil
}

// run executes a tmux subcommand on this server and returns its
// output.
func (s *Server) run(args ...string) (string, error) {
	fullArgs := append(s.globalArgs(false), args...)
	output, err := exec.Command(Binary, fullArgs...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

func isServerGone(output string) bool {
	return strings.Contains(output, "no server running") ||
		strings.Contains(output, "server exited unexpectedly") ||
		strings.Contains(output, "error connecting to")
}
