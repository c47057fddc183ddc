//go:build unix

// File: internal/syscallshim/syscallshim.go
//
// Package syscallshim is a thin, safe facade over the portable
// readiness-polling syscall, self-pipe creation, and single-byte writes.
// It is the only package in this module that touches raw file descriptors
// directly; everything above it deals in opaque tokens and wakers.
package syscallshim

import (
	"errors"

	"golang.org/x/sys/unix"
)

// MaxWaitMillis is the platform ceiling for a single poll(2) timeout.
// Larger requested waits are clamped to this value; the executor loops
// around turn() again afterwards, so no deadline is ever missed by more
// than a fraction of this bound.
const MaxWaitMillis = 60_000

// Interest is a bitmask of readiness conditions a caller wants reported.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
)

// PollEntry is one row of the array handed to Poll: a file descriptor and
// the interests to watch on it. Ready is filled in by Poll with the
// interests that were actually observed ready.
type PollEntry struct {
	FD    int
	Want  Interest
	Ready Interest
}

func toPollEvents(want Interest) int16 {
	var ev int16
	if want&Readable != 0 {
		ev |= unix.POLLIN
	}
	if want&Writable != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

func fromPollEvents(revents int16) Interest {
	const errBits = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL
	var got Interest
	if revents&(unix.POLLIN|errBits) != 0 {
		got |= Readable
	}
	if revents&(unix.POLLOUT|errBits) != 0 {
		got |= Writable
	}
	return got
}

// Poll blocks until at least one of entries is ready, timeoutMillis has
// elapsed, or the call is interrupted by a signal (handled internally by
// retrying). timeoutMillis is clamped above to MaxWaitMillis; a negative
// value is passed through unchanged and blocks indefinitely, matching
// unix.Poll's own convention.
//
// Returns the number of entries with a non-zero Ready mask. Every
// SyscallInterrupted condition (EINTR) is retried transparently; every
// other error is returned to the caller with its kind preserved.
func Poll(entries []PollEntry, timeoutMillis int) (int, error) {
	if timeoutMillis > MaxWaitMillis {
		timeoutMillis = MaxWaitMillis
	}

	fds := make([]unix.PollFd, len(entries))
	for i, e := range entries {
		fds[i] = unix.PollFd{Fd: int32(e.FD), Events: toPollEvents(e.Want)}
	}

	for {
		_, err := unix.Poll(fds, timeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, err
		}
		ready := 0
		for i := range fds {
			got := fromPollEvents(fds[i].Revents)
			entries[i].Ready = got
			if got != 0 {
				ready++
			}
		}
		return ready, nil
	}
}

// Pipe creates an unnamed pipe and returns two non-blocking file
// descriptors: (readFD, writeFD).
func Pipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

// Write1 writes a single byte to fd, tolerating EAGAIN/EWOULDBLOCK: a
// pending byte already signals whatever waiter would have been woken by
// this one, so "would block" is treated as success rather than an error.
func Write1(fd int, b byte) error {
	buf := [1]byte{b}
	_, err := unix.Write(fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil
		}
		return err
	}
	return nil
}

// DrainAll reads and discards everything currently available on fd
// (a non-blocking fd), stopping at the first EAGAIN. Used by the reactor
// to empty the self-pipe after it wakes Poll.
func DrainAll(fd int) error {
	var buf [64]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				return nil
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
	}
}

// Close closes fd, ignoring EINTR per the usual close(2) caveats.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil && !errors.Is(err, unix.EINTR) {
		return err
	}
	return nil
}

// SetNonblock toggles O_NONBLOCK on fd.
func SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}
