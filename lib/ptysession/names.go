// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"slices"
	"strconv"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// SessionChecker reports whether a named session is active.
// *tmux.Server satisfies it.
type SessionChecker interface {
	HasSession(name string) bool
}

// SessionLister reports every active session in one call. SelectName
// uses it when the checker also implements it. *tmux.Server satisfies
// it.
type SessionLister interface {
	ListSessions() ([]string, error)
}

// NameCandidates is the ordered list prefix1..prefixCount.
type NameCandidates struct {
	Prefix string
	Count  int
}

// DefaultCandidates returns ws-1 through ws-9.
func DefaultCandidates() NameCandidates {
	return NameCandidates{Prefix: "ws-", Count: 9}
}

// Names returns the candidates in probe order.
func (c NameCandidates) Names() []string {
	names := make([]string, 0, max(c.Count, 0))
	for index := 1; index <= c.Count; index++ {
		names = append(names, c.Prefix+strconv.Itoa(index))
	}
	return names
}

// SelectName returns the first candidate checker does not report as
// active. A checker that is also a SessionLister is asked once for all
// sessions; if listing fails, each candidate is probed instead. When
// every candidate is active the error is a session-name-exhausted fault
// naming the range.
func SelectName(checker SessionChecker, candidates NameCandidates) (string, error) {
	names := candidates.Names()
	if len(names) == 0 {
		return "", fault.SessionNameExhausted("no candidate session names (count %d)", candidates.Count)
	}
	active := checker.HasSession
	if lister, ok := checker.(SessionLister); ok {
		if listed, err := lister.ListSessions(); err == nil {
			active = func(name string) bool { return slices.Contains(listed, name) }
		}
	}
	for _, name := range names {
		if !active(name) {
			return name, nil
		}
	}
	return "", fault.SessionNameExhausted("all sessions %s to %s are active",
		names[0], names[len(names)-1])
}
