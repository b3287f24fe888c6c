// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The relay loop never sleeps or arms timers: it converts deadlines into
// poll(2) timeouts. All it needs from time is "now", so the abstraction
// is a single method. Production code injects Real(); tests inject
// Fake() and move time explicitly with Advance, which makes deadlines
// such as the companion start delay deterministic.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	companion := ptysession.NewCompanion(program, 2*time.Second, c)
//	c.Advance(2 * time.Second)
package clock
