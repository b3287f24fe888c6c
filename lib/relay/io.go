// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"

	"golang.org/x/sys/unix"
)

// readRetrying reads from fd, retrying interrupted reads.
func readRetrying(fd int, buffer []byte) (int, error) {
	for {
		count, err := unix.Read(fd, buffer)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return count, err
	}
}

// writeAll writes all of data to fd. Short writes continue from where
// they stopped, interrupted writes are retried, and a non-blocking
// descriptor that is full is waited on with poll.
func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		count, err := unix.Write(fd, data)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if err := waitWritable(fd); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}
		data = data[count:]
	}
	return nil
}

func waitWritable(fd int) error {
	descriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(descriptors, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}
