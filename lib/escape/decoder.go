// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package escape

import (
	"strconv"

	"github.com/charmbracelet/x/ansi"
)

// BufferCapacity is the number of sequence bytes the decoder stores.
const BufferCapacity = 256

// maxParameterLength bounds the numeric parameter of a tilde sequence.
// Longer parameters are forwarded without a label.
const maxParameterLength = 15

// Sequence introducers, the byte following ESC.
const (
	introducerCSI = '['
	introducerSS3 = 'O'
	introducerOSC = ']'
)

// State is the decoder's position within an escape sequence.
type State uint8

const (
	// Idle: no sequence in progress.
	Idle State = iota
	// AwaitingIntroducer: an ESC was seen and nothing after it yet.
	AwaitingIntroducer
	// Accumulating: ESC and a recognized introducer were seen; waiting
	// for the final byte.
	Accumulating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingIntroducer:
		return "awaiting-introducer"
	case Accumulating:
		return "accumulating"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Step is the result of feeding one byte to the decoder.
type Step struct {
	// Forward holds the bytes to write to the session. It aliases the
	// decoder's storage and is valid only until the next call to Step
	// or Flush.
	Forward []byte

	// Token is the log token produced by this byte. Only meaningful
	// when HasToken is true.
	Token Token

	// HasToken reports whether this byte produced a log token.
	HasToken bool
}

// Decoder converts keyboard bytes into forward bytes and log tokens.
// The zero value is an idle decoder ready for use. A Decoder is not
// safe for concurrent use.
type Decoder struct {
	state      State
	buffer     [BufferCapacity]byte
	length     int
	overflowed bool
	single     [1]byte
}

// State returns the decoder's current state.
func (d *Decoder) State() State { return d.state }

// Pending returns the number of sequence bytes currently stored.
func (d *Decoder) Pending() int { return d.length }

// Step feeds one byte through the decoder.
func (d *Decoder) Step(c byte) Step {
	switch d.state {
	case AwaitingIntroducer:
		return d.stepIntroducer(c)
	case Accumulating:
		return d.stepAccumulating(c)
	default:
		return d.stepIdle(c)
	}
}

// Flush forwards whatever sequence bytes are stored as literal input
// and returns the decoder to Idle without producing a token. The event
// loop calls this when a lone ESC outlives its grace window.
func (d *Decoder) Flush() Step {
	if d.state == Idle {
		return Step{}
	}
	forward := d.buffer[:d.length]
	d.reset()
	return Step{Forward: forward}
}

// Feed runs every byte of input through the decoder in order, appending
// forwarded bytes to forward and tokens to tokens. It returns the
// extended slices. A sequence still open at the end of input stays
// pending in the decoder.
func (d *Decoder) Feed(input, forward []byte, tokens []Token) ([]byte, []Token) {
	for _, c := range input {
		step := d.Step(c)
		forward = append(forward, step.Forward...)
		if step.HasToken {
			tokens = append(tokens, step.Token)
		}
	}
	return forward, tokens
}

func (d *Decoder) stepIdle(c byte) Step {
	switch c {
	case ansi.ESC:
		d.state = AwaitingIntroducer
		d.buffer[0] = c
		d.length = 1
		return Step{}
	case ansi.LF:
		return d.emitSingle(ansi.CR, LabelToken(LabelEnter))
	case ansi.DEL, ansi.BS:
		return d.emitSingle(c, LabelToken(LabelBackspace))
	case ansi.HT:
		return d.emitSingle(c, LabelToken(LabelTab))
	}
	d.single[0] = c
	step := Step{Forward: d.single[:]}
	if IsLoggable(c) {
		step.Token = RawToken(c)
		step.HasToken = true
	}
	return step
}

func (d *Decoder) emitSingle(forward byte, token Token) Step {
	d.single[0] = forward
	return Step{Forward: d.single[:], Token: token, HasToken: true}
}

func (d *Decoder) stepIntroducer(c byte) Step {
	d.store(c)
	switch c {
	case introducerCSI, introducerSS3, introducerOSC:
		d.state = Accumulating
		return Step{}
	}
	forward := d.buffer[:d.length]
	d.reset()
	return Step{Forward: forward}
}

func (d *Decoder) stepAccumulating(c byte) Step {
	d.store(c)

	if d.buffer[1] == introducerOSC && c == ansi.BEL {
		d.reset()
		return Step{}
	}

	if c < 0x40 || c > 0x7E {
		return Step{}
	}

	sequence := d.buffer[:d.length]
	step := Step{Forward: sequence}
	if !d.overflowed {
		if label, ok := sequenceLabel(sequence); ok {
			step.Token = LabelToken(label)
			step.HasToken = true
		}
	}
	d.reset()
	return step
}

// store appends c to the sequence buffer, dropping it once the buffer
// is full.
func (d *Decoder) store(c byte) {
	if d.length < BufferCapacity {
		d.buffer[d.length] = c
		d.length++
		return
	}
	d.overflowed = true
}

func (d *Decoder) reset() {
	d.state = Idle
	d.length = 0
	d.overflowed = false
}

// sequenceLabel names a complete sequence: ESC, introducer, optional
// parameter bytes, final byte.
func sequenceLabel(sequence []byte) (Label, bool) {
	introducer := sequence[1]
	if introducer == introducerOSC {
		return "", false
	}
	// Private-mode sequences (ESC [ ? ...) are forwarded silently.
	if len(sequence) > 2 && sequence[2] == '?' {
		return "", false
	}

	final := sequence[len(sequence)-1]
	if len(sequence) == 3 {
		switch final {
		case 'A':
			return LabelUp, true
		case 'B':
			return LabelDown, true
		case 'C':
			return LabelRight, true
		case 'D':
			return LabelLeft, true
		case 'H':
			return LabelHome, true
		case 'F':
			return LabelEnd, true
		}
		return "", false
	}

	if final != '~' || len(sequence) < 4 {
		return "", false
	}
	parameter := sequence[2 : len(sequence)-1]
	if len(parameter) > maxParameterLength {
		return "", false
	}
	switch leadingInteger(parameter) {
	case 1:
		return LabelHome, true
	case 4:
		return LabelEnd, true
	case 5:
		return LabelPageUp, true
	case 6:
		return LabelPageDown, true
	}
	return "", false
}

// leadingInteger parses the decimal digits at the start of parameter,
// so "5;3" (a modified Page Up) reads as 5. No digits reads as 0.
func leadingInteger(parameter []byte) int {
	end := 0
	for end < len(parameter) && parameter[end] >= '0' && parameter[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	value, err := strconv.Atoi(string(parameter[:end]))
	if err != nil {
		return 0
	}
	return value
}
