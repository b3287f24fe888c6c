// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAdvance(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(1500 * time.Millisecond)
	if got, want := c.Now(), epoch.Add(1500*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
	c.Set(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Errorf("Now() after Set = %v, want %v", got, epoch)
	}
}

func TestFakeAdvanceNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Advance(-1) did not panic")
		}
	}()
	Fake(epoch).Advance(-1)
}

func TestUntil(t *testing.T) {
	c := Fake(epoch)
	deadline := epoch.Add(2 * time.Second)
	if got := Until(c, deadline); got != 2*time.Second {
		t.Errorf("Until = %v, want 2s", got)
	}
	c.Advance(3 * time.Second)
	if got := Until(c, deadline); got != 0 {
		t.Errorf("Until past deadline = %v, want 0", got)
	}
}

func TestRealIsMonotonic(t *testing.T) {
	c := Real()
	first := c.Now()
	if second := c.Now(); second.Before(first) {
		t.Errorf("Real clock went backwards: %v then %v", first, second)
	}
}
