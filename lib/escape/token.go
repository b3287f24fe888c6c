// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package escape

import "github.com/charmbracelet/x/ansi"

// Label is a friendly bracketed name written to the log in place of a
// control byte or sequence.
type Label string

const (
	LabelEnter     Label = "[ENTER]"
	LabelBackspace Label = "[BACKSPACE]"
	LabelTab       Label = "[TAB]"
	LabelUp        Label = "[UP]"
	LabelDown      Label = "[DOWN]"
	LabelLeft      Label = "[LEFT]"
	LabelRight     Label = "[RIGHT]"
	LabelHome      Label = "[HOME]"
	LabelEnd       Label = "[END]"
	LabelPageUp    Label = "[PAGE_UP]"
	LabelPageDown  Label = "[PAGE_DOWN]"
)

// Labels lists every label the decoder can produce.
var Labels = []Label{
	LabelEnter, LabelBackspace, LabelTab,
	LabelUp, LabelDown, LabelLeft, LabelRight,
	LabelHome, LabelEnd, LabelPageUp, LabelPageDown,
}

// Token is one entry of the keystroke log: either a raw loggable byte
// or a [Label].
type Token struct {
	label Label
	raw   byte
}

// RawToken returns a token holding a single raw byte.
func RawToken(c byte) Token { return Token{raw: c} }

// LabelToken returns a token holding a friendly label.
func LabelToken(label Label) Token { return Token{label: label} }

// Label returns the token's label and true, or "" and false for a raw
// byte token.
func (t Token) Label() (Label, bool) { return t.label, t.label != "" }

// Byte returns the raw byte of a raw token. Meaningless for labels.
func (t Token) Byte() byte { return t.raw }

// AppendText appends the token's log text to dst.
func (t Token) AppendText(dst []byte) []byte {
	if t.label != "" {
		return append(dst, t.label...)
	}
	return append(dst, t.raw)
}

func (t Token) String() string {
	if t.label != "" {
		return string(t.label)
	}
	return string([]byte{t.raw})
}

// IsLoggable reports whether c may appear verbatim in the keystroke
// log: printable ASCII, newline, carriage return, tab, backspace and
// delete. Every other byte is forwarded but never logged.
func IsLoggable(c byte) bool {
	if c >= ansi.SP && c < ansi.DEL {
		return true
	}
	switch c {
	case ansi.LF, ansi.CR, ansi.HT, ansi.BS, ansi.DEL:
		return true
	}
	return false
}
