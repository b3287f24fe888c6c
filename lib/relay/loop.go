// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/clock"
	"github.com/bureau-foundation/keytap/lib/escape"
	"github.com/bureau-foundation/keytap/lib/fault"
	"github.com/bureau-foundation/keytap/lib/ptysession"
)

const (
	// DefaultEscapeTimeout is how long a lone ESC waits for an
	// introducer byte before it is forwarded as a plain keypress.
	DefaultEscapeTimeout = time.Millisecond

	// inputChunk is the largest keyboard read per iteration.
	inputChunk = 256

	// outputChunk is the largest master read per iteration.
	outputChunk = 4096
)

// Session is the pty side of the loop. *ptysession.Session satisfies
// it.
type Session interface {
	MasterFD() int
	Exited() (bool, error)
	PropagateGeometry(ptysession.Geometry) error
}

// Sink receives log tokens. *keylog.Sink satisfies it.
type Sink interface {
	Append(escape.Token) error
	Flush() error
}

// Companion is a deferred process start. *ptysession.Companion
// satisfies it.
type Companion interface {
	Due() (time.Time, bool)
	StartIfDue() (bool, error)
}

// Config wires a Loop to its descriptors and collaborators.
type Config struct {
	// Input is the keyboard descriptor (standard input).
	Input int

	// Output receives master output verbatim (standard output).
	Output int

	Session Session
	Sink    Sink

	// Geometry reads the user's window size. Nil disables resizing.
	Geometry func() (ptysession.Geometry, error)

	// Companion is optional.
	Companion Companion

	// EscapeTimeout defaults to DefaultEscapeTimeout.
	EscapeTimeout time.Duration

	// Signals are routed into the loop. Nil installs no handlers;
	// tests post signals with [Loop.Wake] instead.
	Signals []os.Signal

	// Clock defaults to the system clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Loop relays bytes between the terminal and the pty.
type Loop struct {
	config  Config
	logger  *slog.Logger
	decoder escape.Decoder
	wake    *wakePipe

	forward     []byte
	sinkFailing bool
	result      Result

	// escapeDeadline is when a pending lone ESC is forwarded as a
	// plain keypress. Meaningful only while the decoder is
	// AwaitingIntroducer.
	escapeDeadline time.Time
}

// New validates config, creates the wake pipe, and starts routing
// config.Signals into it. Close releases both.
func New(config Config) (*Loop, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("relay: nil session")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("relay: nil sink")
	}
	if config.EscapeTimeout <= 0 {
		config.EscapeTimeout = DefaultEscapeTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wake, err := newWakePipe()
	if err != nil {
		return nil, err
	}
	wake.notify(config.Signals)

	return &Loop{
		config:  config,
		logger:  logger,
		wake:    wake,
		forward: make([]byte, 0, inputChunk),
	}, nil
}

// Wake posts sig into the loop as if it had been delivered.
func (l *Loop) Wake(sig syscall.Signal) {
	l.wake.post(sig)
}

// Close stops signal routing and closes the wake pipe.
func (l *Loop) Close() {
	l.wake.close()
}

// Decoder exposes the loop's decoder state, for diagnostics.
func (l *Loop) Decoder() *escape.Decoder {
	return &l.decoder
}

// Run relays until the session exits, a termination signal arrives,
// input ends, or the master hangs up. I/O failures on the terminal or
// the master are returned as IO faults.
func (l *Loop) Run() (Result, error) {
	descriptors := []unix.PollFd{
		{Fd: int32(l.config.Input), Events: unix.POLLIN},
		{Fd: int32(l.config.Session.MasterFD()), Events: unix.POLLIN},
		{Fd: int32(l.wake.read), Events: unix.POLLIN},
	}
	const (
		inputIndex = iota
		masterIndex
		wakeIndex
	)
	const readable = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

	for {
		exited, err := l.config.Session.Exited()
		if err != nil {
			return l.result, fault.IO("probing session: %w", err)
		}
		if exited {
			l.drainMaster()
			return l.stop(ReasonSessionExited), nil
		}

		l.startCompanion()

		for index := range descriptors {
			descriptors[index].Revents = 0
		}
		count, err := unix.Poll(descriptors, l.pollTimeout())
		if errors.Is(err, unix.EINTR) {
			l.resync("interrupted poll")
			continue
		}
		if err != nil {
			return l.result, fault.IO("poll: %w", err)
		}

		// The ESC deadline decides, not the poll result: the timeout
		// may be the companion's, and a busy master can keep poll from
		// timing out. Unread keyboard input may still complete the
		// sequence.
		if descriptors[inputIndex].Revents&readable == 0 {
			if err := l.expireEscape(); err != nil {
				return l.result, err
			}
		}
		if count == 0 {
			continue
		}

		if descriptors[wakeIndex].Revents&readable != 0 {
			if number, stop := l.handleSignals(); stop {
				l.result.Signal = number
				return l.stop(ReasonSignaled), nil
			}
		}

		if descriptors[inputIndex].Revents&readable != 0 {
			done, err := l.relayInput()
			if err != nil {
				return l.result, err
			}
			if done {
				return l.stop(ReasonEndOfInput), nil
			}
		}

		if descriptors[masterIndex].Revents&readable != 0 {
			done, err := l.relayOutput()
			if err != nil {
				return l.result, err
			}
			if done {
				return l.stop(ReasonHangup), nil
			}
		}
	}
}

func (l *Loop) stop(reason Reason) Result {
	l.result.Reason = reason
	l.logger.Debug("relay loop stopped",
		"reason", reason.String(),
		"input_bytes", l.result.InputBytes,
		"output_bytes", l.result.OutputBytes,
	)
	return l.result
}

// pollTimeout returns the poll(2) timeout in milliseconds: the escape
// window while a lone ESC is pending, bounded by the companion's start
// deadline, or -1 when nothing is scheduled.
func (l *Loop) pollTimeout() int {
	timeout := time.Duration(-1)
	if l.decoder.State() == escape.AwaitingIntroducer {
		timeout = clock.Until(l.config.Clock, l.escapeDeadline)
	}
	if l.config.Companion != nil {
		if due, armed := l.config.Companion.Due(); armed {
			remaining := clock.Until(l.config.Clock, due)
			if timeout < 0 || remaining < timeout {
				timeout = remaining
			}
		}
	}
	if timeout < 0 {
		return -1
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

func (l *Loop) startCompanion() {
	if l.config.Companion == nil {
		return
	}
	started, err := l.config.Companion.StartIfDue()
	if err != nil {
		l.logger.Warn("companion failed to start", "error", err)
		return
	}
	if started {
		l.logger.Debug("companion started")
	}
}

// noteEscape starts the grace window for an ESC left pending by the
// last read. Any byte after an ESC ends AwaitingIntroducer, so a pending
// ESC is always the last byte read.
func (l *Loop) noteEscape() {
	if l.decoder.State() == escape.AwaitingIntroducer {
		l.escapeDeadline = l.config.Clock.Now().Add(l.config.EscapeTimeout)
	}
}

// expireEscape forwards a pending ESC once its grace window has passed.
func (l *Loop) expireEscape() error {
	if l.decoder.State() != escape.AwaitingIntroducer {
		return nil
	}
	if l.config.Clock.Now().Before(l.escapeDeadline) {
		return nil
	}
	return l.flushEscape()
}

// flushEscape forwards whatever the decoder holds, unconditionally.
func (l *Loop) flushEscape() error {
	step := l.decoder.Flush()
	if len(step.Forward) == 0 {
		return nil
	}
	if err := writeAll(l.config.Session.MasterFD(), step.Forward); err != nil {
		return fault.IO("writing to pty master: %w", err)
	}
	return nil
}

// handleSignals drains the wake pipe. It returns the first termination
// signal and true when the loop must stop.
func (l *Loop) handleSignals() (syscall.Signal, bool) {
	for _, number := range l.wake.drain() {
		switch number {
		case syscall.SIGWINCH:
			l.resync("SIGWINCH")
		case syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP:
			l.logger.Debug("termination signal", "signal", number.String())
			return number, true
		case syscall.SIGCHLD:
			// The exit probe at the top of the next iteration reaps.
		default:
			l.logger.Debug("ignoring signal", "signal", number.String())
		}
	}
	return 0, false
}

// Resync copies the user's window size to the pty. The controller calls
// it once before Run; the loop calls it on SIGWINCH.
func (l *Loop) Resync() { l.resync("initial") }

func (l *Loop) resync(cause string) {
	if l.config.Geometry == nil {
		return
	}
	geometry, err := l.config.Geometry()
	if err != nil {
		l.logger.Debug("reading window size", "cause", cause, "error", err)
		return
	}
	if err := l.config.Session.PropagateGeometry(geometry); err != nil {
		l.logger.Debug("propagating window size", "cause", cause, "error", err)
		return
	}
	l.logger.Debug("window size synchronized", "cause", cause, "geometry", geometry.String())
}

// relayInput reads one chunk of keyboard input, decodes it, and
// forwards and logs the result. It reports true at end of input.
func (l *Loop) relayInput() (bool, error) {
	var buffer [inputChunk]byte
	count, err := readRetrying(l.config.Input, buffer[:])
	if errors.Is(err, unix.EAGAIN) {
		return false, nil
	}
	if err != nil {
		return false, fault.IO("reading standard input: %w", err)
	}
	if count == 0 {
		// Whatever the user typed last still reaches the session.
		return true, l.flushEscape()
	}
	l.result.InputBytes += int64(count)

	l.forward = l.forward[:0]
	for _, c := range buffer[:count] {
		step := l.decoder.Step(c)
		l.forward = append(l.forward, step.Forward...)
		if step.HasToken {
			l.appendToken(step.Token)
		}
	}
	l.noteEscape()

	if err := writeAll(l.config.Session.MasterFD(), l.forward); err != nil {
		return false, fault.IO("writing to pty master: %w", err)
	}
	l.flushSink()
	return false, nil
}

// appendToken logs one token. Log failures never interrupt the relay:
// the first one is reported and later ones are dropped silently until a
// write succeeds again.
func (l *Loop) appendToken(token escape.Token) {
	if err := l.config.Sink.Append(token); err != nil {
		l.sinkFailed(err)
	}
}

func (l *Loop) flushSink() {
	if err := l.config.Sink.Flush(); err != nil {
		l.sinkFailed(err)
		return
	}
	if l.sinkFailing {
		l.logger.Info("keystroke log writable again")
		l.sinkFailing = false
	}
}

func (l *Loop) sinkFailed(err error) {
	if !l.sinkFailing {
		l.logger.Warn("writing keystroke log", "error", err)
		l.sinkFailing = true
	}
}

// relayOutput copies one chunk of master output to the output. It
// reports true when the slave side has hung up.
func (l *Loop) relayOutput() (bool, error) {
	var buffer [outputChunk]byte
	count, err := readRetrying(l.config.Session.MasterFD(), buffer[:])
	if errors.Is(err, unix.EAGAIN) {
		return false, nil
	}
	if errors.Is(err, unix.EIO) || (err == nil && count == 0) {
		return true, nil
	}
	if err != nil {
		return false, fault.IO("reading pty master: %w", err)
	}
	l.result.OutputBytes += int64(count)
	if err := writeAll(l.config.Output, buffer[:count]); err != nil {
		return false, fault.IO("writing standard output: %w", err)
	}
	return false, nil
}

// drainMaster copies output the session produced before exiting.
func (l *Loop) drainMaster() {
	descriptors := []unix.PollFd{{Fd: int32(l.config.Session.MasterFD()), Events: unix.POLLIN}}
	for {
		count, err := unix.Poll(descriptors, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || count == 0 || descriptors[0].Revents&unix.POLLIN == 0 {
			return
		}
		done, err := l.relayOutput()
		if err != nil {
			l.logger.Debug("draining pty master", "error", err)
			return
		}
		if done {
			return
		}
	}
}
