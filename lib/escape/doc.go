// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package escape decodes a raw keyboard byte stream into the bytes that
// must reach the session and the tokens that describe them in the
// keystroke log.
//
// The [Decoder] is a pure state machine: it has no notion of time and
// performs no I/O. Each call to [Decoder.Step] consumes one byte and
// returns the bytes to forward (possibly none) and at most one log
// [Token]. Multi-byte cursor and function-key sequences (CSI "ESC [",
// SS3 "ESC O") are buffered until their final byte and then forwarded
// intact, labeled with a friendly name such as [UP] or [PAGE_DOWN]
// when recognized. OSC sequences ("ESC ]") terminated by BEL are
// swallowed entirely.
//
// A lone ESC is indistinguishable from the start of a sequence until
// either the next byte arrives or some time passes. The caller owns the
// timing decision: when its grace window expires while [Decoder.State]
// is [AwaitingIntroducer], it calls [Decoder.Flush], which forwards the
// pending ESC literally.
//
// Sequence storage is bounded at [BufferCapacity] bytes. Bytes past the
// cap are dropped from storage, but the sequence still terminates on its
// final byte and forwards the stored prefix without a label. The decoder
// never blocks waiting for a terminator that storage could not hold.
package escape
