// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for keytap packages.
//
// [SocketDir] creates a short temporary directory in /tmp for Unix
// domain sockets, which have a 108-byte path limit that nested
// t.TempDir() paths can exceed.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests waiting on a relay loop or a child process never
// hang the suite when the code under test deadlocks.
//
// [WriteScript] drops a small executable shell script into a test
// directory, for tests that need a session or companion program with
// specific behaviour.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
