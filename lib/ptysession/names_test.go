// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/keytap/lib/fault"
)

// fakeChecker records probes and reports the names in active as taken.
type fakeChecker struct {
	active map[string]bool
	probed []string
}

func (f *fakeChecker) HasSession(name string) bool {
	f.probed = append(f.probed, name)
	return f.active[name]
}

// listingChecker also lists sessions in one call, the way a tmux server
// does.
type listingChecker struct {
	fakeChecker
	listed  []string
	listErr error
	lists   int
}

func (l *listingChecker) ListSessions() ([]string, error) {
	l.lists++
	return l.listed, l.listErr
}

func TestDefaultCandidates(t *testing.T) {
	want := []string{"ws-1", "ws-2", "ws-3", "ws-4", "ws-5", "ws-6", "ws-7", "ws-8", "ws-9"}
	if got := DefaultCandidates().Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestSelectNameFirstFree(t *testing.T) {
	checker := &fakeChecker{active: map[string]bool{"ws-1": true, "ws-2": true, "ws-4": true}}
	name, err := SelectName(checker, DefaultCandidates())
	if err != nil {
		t.Fatalf("SelectName: %v", err)
	}
	if name != "ws-3" {
		t.Errorf("SelectName = %q, want ws-3", name)
	}
	if want := []string{"ws-1", "ws-2", "ws-3"}; !slices.Equal(checker.probed, want) {
		t.Errorf("probed %v, want %v", checker.probed, want)
	}
}

func TestSelectNameExhausted(t *testing.T) {
	checker := &fakeChecker{active: map[string]bool{}}
	for _, name := range DefaultCandidates().Names() {
		checker.active[name] = true
	}

	name, err := SelectName(checker, DefaultCandidates())
	if err == nil {
		t.Fatalf("SelectName returned %q with every candidate active", name)
	}
	if !fault.Is(err, fault.KindSessionNameExhausted) {
		t.Errorf("error kind: got %v, want session_name_exhausted", err)
	}
	if got, want := err.Error(), "all sessions ws-1 to ws-9 are active"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if len(checker.probed) != 9 {
		t.Errorf("probed %d names, want 9", len(checker.probed))
	}
}

func TestSelectNameCustomCandidates(t *testing.T) {
	checker := &fakeChecker{active: map[string]bool{"dev-1": true}}
	name, err := SelectName(checker, NameCandidates{Prefix: "dev-", Count: 2})
	if err != nil || name != "dev-2" {
		t.Errorf("SelectName = %q, %v; want dev-2", name, err)
	}

	if _, err := SelectName(checker, NameCandidates{Prefix: "dev-", Count: 0}); !fault.Is(err, fault.KindSessionNameExhausted) {
		t.Errorf("empty candidate list: got %v, want session_name_exhausted", err)
	}
}

func TestSelectNameListsOnce(t *testing.T) {
	checker := &listingChecker{listed: []string{"_guard", "ws-1", "ws-10", "ws-2"}}
	name, err := SelectName(checker, DefaultCandidates())
	if err != nil {
		t.Fatalf("SelectName: %v", err)
	}
	if name != "ws-3" {
		t.Errorf("SelectName = %q, want ws-3", name)
	}
	if checker.lists != 1 || len(checker.probed) != 0 {
		t.Errorf("listed %d times and probed %v, want one listing and no probes", checker.lists, checker.probed)
	}
}

func TestSelectNameFallsBackToProbing(t *testing.T) {
	checker := &listingChecker{
		fakeChecker: fakeChecker{active: map[string]bool{"ws-1": true}},
		listErr:     errors.New("tmux list-sessions: permission denied"),
	}
	name, err := SelectName(checker, DefaultCandidates())
	if err != nil || name != "ws-2" {
		t.Fatalf("SelectName = %q, %v; want ws-2", name, err)
	}
	if want := []string{"ws-1", "ws-2"}; !slices.Equal(checker.probed, want) {
		t.Errorf("probed %v, want %v", checker.probed, want)
	}
}
