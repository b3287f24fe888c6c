// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error path for keytap.
//
// The interceptor owns the terminal while it runs, so a fatal error must
// only be written after the terminal mode has been restored. Callers
// arrange that by returning errors out of run() (whose deferred cleanup
// restores the terminal) and calling Fatal from main().
package process
