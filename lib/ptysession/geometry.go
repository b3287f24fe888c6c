// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// Geometry is a terminal window size.
type Geometry struct {
	Rows    uint16
	Columns uint16
	XPixels uint16
	YPixels uint16
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Columns, g.Rows)
}

// QueryGeometry reads the window size of the terminal open on f.
func QueryGeometry(f *os.File) (Geometry, error) {
	size, err := pty.GetsizeFull(f)
	if err != nil {
		return Geometry{}, fmt.Errorf("reading window size of %s: %w", f.Name(), err)
	}
	return Geometry{Rows: size.Rows, Columns: size.Cols, XPixels: size.X, YPixels: size.Y}, nil
}

// SetGeometry applies g to the terminal open on f.
func SetGeometry(f *os.File, g Geometry) error {
	if err := pty.Setsize(f, &pty.Winsize{Rows: g.Rows, Cols: g.Columns, X: g.XPixels, Y: g.YPixels}); err != nil {
		return fmt.Errorf("setting window size of %s to %v: %w", f.Name(), g, err)
	}
	return nil
}
