// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keylog

import (
	"bytes"
	"strings"

	"github.com/bureau-foundation/keytap/lib/escape"
)

// Entry is one parsed element of the log: either a label or a run of
// literal text.
type Entry struct {
	// Label is set for label entries.
	Label escape.Label

	// Text holds literal keystrokes for text entries.
	Text string
}

// IsLabel reports whether the entry is a label.
func (e Entry) IsLabel() bool { return e.Label != "" }

var knownLabels = func() map[string]escape.Label {
	labels := make(map[string]escape.Label, len(escape.Labels))
	for _, label := range escape.Labels {
		labels[string(label)] = label
	}
	return labels
}()

// Parse splits log data into entries. Only the labels the decoder
// produces are recognized; any other bracketed text is literal input
// the user typed. The newline written after [ENTER] is dropped.
func Parse(data []byte) []Entry {
	var entries []Entry
	var text strings.Builder
	flushText := func() {
		if text.Len() > 0 {
			entries = append(entries, Entry{Text: text.String()})
			text.Reset()
		}
	}

	for index := 0; index < len(data); {
		if data[index] == '[' {
			if end := bytes.IndexByte(data[index:], ']'); end > 0 {
				if label, ok := knownLabels[string(data[index:index+end+1])]; ok {
					flushText()
					entries = append(entries, Entry{Label: label})
					index += end + 1
					if label == escape.LabelEnter && index < len(data) && data[index] == '\n' {
						index++
					}
					continue
				}
			}
		}
		text.WriteByte(data[index])
		index++
	}
	flushText()
	return entries
}

// CurrentLine reconstructs the text of the last line in the log: the
// line in progress, or the last submitted line when the log ends with
// [ENTER]. [BACKSPACE] deletes the previous character; other labels and
// carriage returns contribute nothing.
func CurrentLine(data []byte) string {
	data = bytes.TrimSuffix(data, []byte{'\n'})
	if newline := bytes.LastIndexByte(data, '\n'); newline >= 0 {
		data = data[newline+1:]
	}

	var line []rune
	for _, entry := range Parse(data) {
		if entry.IsLabel() {
			if entry.Label == escape.LabelBackspace && len(line) > 0 {
				line = line[:len(line)-1]
			}
			continue
		}
		for _, r := range entry.Text {
			if r == '\r' {
				continue
			}
			line = append(line, r)
		}
	}
	return string(line)
}
