//go:build windows

// File: reactor/reactor_windows.go
//
// The portable readiness-polling syscall this core is built on
// (poll(2)) has no Windows equivalent that operates uniformly across
// pipes and sockets the way the self-pipe trick requires, and the
// original prototype this module generalizes never targeted Windows
// either. Rather than paper over that with a different wake mechanism
// on this one platform, New reports the platform as unsupported, the
// same stance our reference stack takes for any OS it has no backend
// for.
package reactor

import (
	"time"

	"github.com/miquels/nara/api"
)

// New always fails on Windows: see the package comment in this file.
func New() (*Reactor, error) {
	return nil, api.ErrNotSupported
}

// Close is unreachable in practice since New never returns a usable
// Reactor on this platform, but is defined so code written against the
// platform-neutral Reactor type still builds here.
func (r *Reactor) Close() error { return nil }

// Notify is unreachable in practice; see Close.
func (r *Reactor) Notify() {}

// Turn is unreachable in practice; see Close.
func (r *Reactor) Turn(maxWait time.Duration) error {
	return api.ErrNotSupported
}
