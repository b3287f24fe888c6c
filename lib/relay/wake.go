// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultSignals are the signals the controller routes into the loop.
var DefaultSignals = []os.Signal{
	syscall.SIGWINCH,
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGCHLD,
}

// wakePipe is a non-blocking self-pipe. Each byte written is a signal
// number.
type wakePipe struct {
	read  int
	write int

	signals chan os.Signal
	stop    chan struct{}
	done    chan struct{}
}

func newWakePipe() (*wakePipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("creating wake pipe: %w", err)
	}
	return &wakePipe{read: fds[0], write: fds[1]}, nil
}

// notify routes the given signals into the pipe through a forwarding
// goroutine.
func (w *wakePipe) notify(signals []os.Signal) {
	if len(signals) == 0 {
		return
	}
	w.signals = make(chan os.Signal, 16)
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	signal.Notify(w.signals, signals...)
	go func() {
		defer close(w.done)
		for {
			select {
			case received := <-w.signals:
				if number, ok := received.(syscall.Signal); ok {
					w.post(number)
				}
			case <-w.stop:
				return
			}
		}
	}()
}

// post writes one signal number. A full pipe already guarantees a
// wake-up, so EAGAIN is dropped.
func (w *wakePipe) post(number syscall.Signal) {
	for {
		_, err := unix.Write(w.write, []byte{byte(number)})
		if !errors.Is(err, unix.EINTR) {
			return
		}
	}
}

// drain reads every pending signal number.
func (w *wakePipe) drain() []syscall.Signal {
	var received []syscall.Signal
	var buffer [64]byte
	for {
		count, err := unix.Read(w.read, buffer[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || count <= 0 {
			return received
		}
		for _, b := range buffer[:count] {
			received = append(received, syscall.Signal(b))
		}
	}
}

func (w *wakePipe) close() {
	if w.signals != nil {
		signal.Stop(w.signals)
		close(w.stop)
		<-w.done
		w.signals = nil
	}
	unix.Close(w.read)
	unix.Close(w.write)
}
