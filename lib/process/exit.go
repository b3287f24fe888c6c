// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Name prefixes fatal error reports.
const Name = "keytap"

// Report writes "keytap: err" to w.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "%s: %v\n", Name, err)
}

// Fatal reports err on stderr and exits with code 1.
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(1)
}
