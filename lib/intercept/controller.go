// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package intercept

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/keytap/lib/clock"
	"github.com/bureau-foundation/keytap/lib/config"
	"github.com/bureau-foundation/keytap/lib/keylog"
	"github.com/bureau-foundation/keytap/lib/ptysession"
	"github.com/bureau-foundation/keytap/lib/relay"
	"github.com/bureau-foundation/keytap/lib/termmode"
	"github.com/bureau-foundation/keytap/lib/tmux"
)

// Options configures one interception run.
type Options struct {
	// Config supplies the session, companion, log and relay settings.
	// Nil uses config.Default().
	Config *config.Config

	// Program, when non-empty, replaces the configured session command.
	Program []string

	// Stdin and Stdout are the user's terminal. Default: os.Stdin and
	// os.Stdout.
	Stdin  *os.File
	Stdout *os.File

	// Checker reports active session names. Default: the tmux server
	// selected by Config.Session.
	Checker ptysession.SessionChecker

	// Clock drives the companion delay. Default: the system clock.
	Clock clock.Clock

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Outcome summarizes a completed run.
type Outcome struct {
	// Session is the chosen session name.
	Session string

	// LogPath is the keystroke log written to.
	LogPath string

	// Loop is the relay loop's result.
	Loop relay.Result

	// Exit is the primary's termination status.
	Exit ptysession.ExitStatus
}

// controller holds everything a run has set up so far. shutdown tears
// down whatever is non-nil.
type controller struct {
	options Options
	config  *config.Config
	logger  *slog.Logger

	sink      *keylog.Sink
	session   *ptysession.Session
	spawned   bool
	companion *ptysession.Companion
	loop      *relay.Loop
	terminal  *termmode.Controller
}

// Run intercepts one session from start to finish. Any error is
// classified with lib/fault; the terminal mode has been restored by the
// time Run returns.
func Run(options Options) (Outcome, error) {
	c := newController(options)
	outcome, runErr := c.run()
	if shutdownErr := c.shutdown(&outcome); shutdownErr != nil {
		if runErr == nil {
			return outcome, shutdownErr
		}
		c.logger.Warn("teardown after failure", "error", shutdownErr)
	}
	return outcome, runErr
}

func newController(options Options) *controller {
	if options.Config == nil {
		options.Config = config.Default()
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &controller{
		options: options,
		config:  options.Config,
		logger:  options.Logger,
	}
}

func (c *controller) run() (Outcome, error) {
	var outcome Outcome
	cfg := c.config

	sink, err := keylog.Open(cfg.Keylog.Path)
	if err != nil {
		return outcome, err
	}
	c.sink = sink
	outcome.LogPath = sink.Path()

	session, err := ptysession.Allocate()
	if err != nil {
		return outcome, err
	}
	c.session = session

	server := c.defaultServer()
	checker := c.options.Checker
	if checker == nil {
		checker = server
	}
	name, err := ptysession.SelectName(checker, ptysession.NameCandidates{
		Prefix: cfg.Session.NamePrefix,
		Count:  cfg.Session.NameCount,
	})
	if err != nil {
		return outcome, err
	}
	outcome.Session = name
	logger := c.logger.With("session", name)
	c.logger = logger

	program := c.sessionProgram(server).ForSession(name)
	if err := session.Spawn(program); err != nil {
		return outcome, err
	}
	c.spawned = true
	logger.Debug("session spawned",
		"pid", session.Pid(),
		"command", program.Args,
		"slave", session.SlavePath(),
	)

	if len(cfg.Companion.Command) > 0 {
		c.companion = ptysession.NewCompanion(
			ptysession.Program{Args: cfg.Companion.Command},
			cfg.Companion.Delay,
			cfg.Companion.SessionEnv,
			c.options.Clock,
		)
		stdioPath := ""
		if cfg.Companion.Stdio == config.StdioPTY {
			stdioPath = session.SlavePath()
		}
		c.companion.Arm(name, stdioPath)
	}

	loopConfig := relay.Config{
		Input:         int(c.options.Stdin.Fd()),
		Output:        int(c.options.Stdout.Fd()),
		Session:       session,
		Sink:          sink,
		Geometry:      c.geometrySource(),
		EscapeTimeout: cfg.Relay.EscapeTimeout,
		Signals:       relay.DefaultSignals,
		Clock:         c.options.Clock,
		Logger:        logger,
	}
	if c.companion != nil {
		loopConfig.Companion = c.companion
	}
	loop, err := relay.New(loopConfig)
	if err != nil {
		return outcome, fmt.Errorf("creating relay loop: %w", err)
	}
	c.loop = loop

	inputFD := int(c.options.Stdin.Fd())
	if termmode.IsTerminal(inputFD) {
		c.terminal = termmode.New(inputFD)
		if err := c.terminal.EnterRaw(); err != nil {
			return outcome, err
		}
	} else {
		logger.Info("standard input is not a terminal; leaving its mode alone")
	}

	loop.Resync()

	result, err := loop.Run()
	outcome.Loop = result
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

// defaultServer is the tmux server the configuration selects.
func (c *controller) defaultServer() *tmux.Server {
	return tmux.NewServer(c.config.Session.TmuxSocket, c.config.Session.TmuxConfig)
}

// sessionProgram chooses the primary's argv: the command line, then
// the configuration, then tmux attached to the configured server.
func (c *controller) sessionProgram(server *tmux.Server) ptysession.Program {
	switch {
	case len(c.options.Program) > 0:
		return ptysession.Program{Args: c.options.Program}
	case len(c.config.Session.Command) > 0:
		return ptysession.Program{Args: c.config.Session.Command}
	default:
		return ptysession.Program{Args: server.AttachArgs(ptysession.SessionPlaceholder)}
	}
}

// geometrySource returns the window size reader for the user's
// terminal, or nil when neither stream is a terminal.
func (c *controller) geometrySource() func() (ptysession.Geometry, error) {
	for _, stream := range []*os.File{c.options.Stdin, c.options.Stdout} {
		if termmode.IsTerminal(int(stream.Fd())) {
			return func() (ptysession.Geometry, error) {
				return ptysession.QueryGeometry(stream)
			}
		}
	}
	return nil
}

// shutdown releases everything run set up, in order. It returns the
// error that matters most to the caller: a failed terminal restore.
//
// The loop's signal routing stays installed until the terminal is
// restored: a SIGTERM while the session is being reaped must not kill
// keytap with the terminal still raw.
func (c *controller) shutdown(outcome *Outcome) error {
	if c.loop != nil {
		defer c.loop.Close()
	}

	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			c.logger.Warn("closing keystroke log", "error", err)
		}
	}

	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Debug("closing pty master", "error", err)
		}
	}

	if c.spawned {
		// Closing the master hangs up the slave; the explicit SIGHUP
		// covers a primary that has no controlling terminal any more.
		if outcome.Loop.Reason != relay.ReasonSessionExited {
			if err := c.session.Signal(unix.SIGHUP); err != nil {
				c.logger.Debug("hanging up session", "error", err)
			}
		}
		status, err := c.session.Wait()
		if err != nil {
			c.logger.Warn("reaping session", "error", err)
		} else {
			outcome.Exit = status
			c.logger.Info("session ended",
				"reason", outcome.Loop.Reason.String(),
				"status", status.String(),
			)
		}
	}

	if c.companion != nil {
		if pid := c.companion.Pid(); pid != 0 {
			status, err := c.companion.Stop()
			if err != nil {
				c.logger.Warn("stopping companion", "pid", pid, "error", err)
			} else {
				c.logger.Debug("companion stopped", "pid", pid, "status", status.String())
			}
		} else {
			c.companion.Stop()
		}
	}

	if c.terminal != nil {
		if err := c.terminal.Restore(); err != nil {
			return fmt.Errorf("%w (run reset to recover the terminal)", err)
		}
	}
	return nil
}
