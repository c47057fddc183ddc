//go:build windows

// File: tcp/tcp_windows.go
//
// No reactor backend exists on Windows (see reactor/reactor_windows.go),
// so there is nothing for this adapter to register sockets with either.
package tcp

import (
	"github.com/miquels/nara"
	"github.com/miquels/nara/api"
	"github.com/miquels/nara/internal/task"
)

var errUnsupported = api.ErrNotSupported

// Listen always fails on Windows; see the package comment in this file.
func Listen(rt *nara.Runtime, network, addr string) (*Listener, error) {
	return nil, errUnsupported
}

// Close is unreachable in practice since Listen never succeeds here.
func (l *Listener) Close() error { return errUnsupported }

// Accept is unreachable in practice since Listen never succeeds here.
func (l *Listener) Accept(rt *nara.Runtime) task.Future[AcceptResult] {
	return acceptUnsupported{}
}

type acceptUnsupported struct{}

func (acceptUnsupported) Poll(w task.Waker) (AcceptResult, bool) {
	return AcceptResult{Err: errUnsupported}, true
}

// Dial always fails on Windows; see the package comment in this file.
func Dial(rt *nara.Runtime, network, addr string) *task.JoinHandle[AcceptResult] {
	return nara.SpawnBlocking(rt, func() AcceptResult {
		return AcceptResult{Err: errUnsupported}
	})
}

// Close is unreachable in practice since Listen/Dial never succeed here.
func (c *Conn) Close() error { return errUnsupported }

// Read is unreachable in practice since Listen/Dial never succeed here.
func (c *Conn) Read(rt *nara.Runtime, buf []byte) task.Future[IOResult] {
	return ioUnsupported{}
}

// Write is unreachable in practice since Listen/Dial never succeed here.
func (c *Conn) Write(rt *nara.Runtime, buf []byte) task.Future[IOResult] {
	return ioUnsupported{}
}

type ioUnsupported struct{}

func (ioUnsupported) Poll(w task.Waker) (IOResult, bool) {
	return IOResult{Err: errUnsupported}, true
}
