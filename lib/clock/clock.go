// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Until returns the duration from c's current time until deadline,
// clamped at zero.
func Until(c Clock, deadline time.Time) time.Duration {
	remaining := deadline.Sub(c.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
