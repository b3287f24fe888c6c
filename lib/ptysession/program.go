// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"os"
	"strings"
	"syscall"

	"github.com/bureau-foundation/keytap/lib/fault"
)

const (
	// SessionPlaceholder in a program argument is replaced by the chosen
	// session name.
	SessionPlaceholder = "{session}"

	// SessionEnv carries the chosen session name to the primary.
	SessionEnv = "KEYTAP_SESSION"
)

// Program describes a process to start.
type Program struct {
	// Args is the argument vector; Args[0] is resolved through PATH.
	Args []string

	// Env is the complete environment. Nil inherits keytap's.
	Env []string

	// Dir is the working directory. Empty inherits keytap's.
	Dir string
}

// ForSession returns a copy of p with every SessionPlaceholder in Args
// replaced by name and SessionEnv=name added to the environment.
func (p Program) ForSession(name string) Program {
	args := make([]string, len(p.Args))
	for index, arg := range p.Args {
		args[index] = strings.ReplaceAll(arg, SessionPlaceholder, name)
	}
	return Program{
		Args: args,
		Env:  withEnv(p.Env, SessionEnv, name),
		Dir:  p.Dir,
	}
}

// withEnv returns env (or the process environment when env is nil) with
// key set to value, replacing any existing assignment.
func withEnv(env []string, key, value string) []string {
	if env == nil {
		env = os.Environ()
	}
	prefix := key + "="
	result := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if !strings.HasPrefix(entry, prefix) {
			result = append(result, entry)
		}
	}
	return append(result, prefix+value)
}

// start launches the program with the given standard streams and
// process attributes and returns its pid. The os.Process handle is
// released immediately: the caller tracks the child by pid.
func (p Program) start(files []*os.File, attributes *syscall.SysProcAttr) (int, error) {
	if len(p.Args) == 0 || p.Args[0] == "" {
		return 0, fault.Spawn("empty command")
	}
	path, err := lookPath(p.Args[0])
	if err != nil {
		return 0, fault.Spawn("resolving %q: %w", p.Args[0], err)
	}
	env := p.Env
	if env == nil {
		env = os.Environ()
	}
	process, err := os.StartProcess(path, p.Args, &os.ProcAttr{
		Dir:   p.Dir,
		Env:   env,
		Files: files,
		Sys:   attributes,
	})
	if err != nil {
		return 0, fault.Spawn("starting %q: %w", p.Args[0], err)
	}
	pid := process.Pid
	process.Release()
	return pid, nil
}
