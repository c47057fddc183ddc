// File: reactor/reactor.go
//
// Package reactor owns the set of file descriptors under readiness
// observation and the self-pipe used to unblock the readiness-polling
// syscall from any goroutine. It translates fd readiness and self-pipe
// wake-ups into waker invocations; it has no notion of tasks, futures,
// or JoinHandles, only wakers — which keeps fd lifetimes completely
// independent of task lifetimes, per spec section 4.3's design
// rationale.
//
// The reactor is built on the portable readiness-polling syscall
// (poll(2) on Unix) rather than a kernel-specific API such as epoll or
// kqueue, matching spec section 1's scope: this module targets the
// portable syscall, not peak single-platform throughput.
package reactor

import (
	"sync"
	"time"

	"github.com/miquels/nara/api"
)

// Interest is a bitmask of readiness conditions an adapter wants
// reported on a registered file descriptor. Its bit layout matches
// internal/syscallshim.Interest exactly (both are uint32 bitmasks with
// Readable/Writable as the low two bits) so the Unix Turn implementation
// can convert between them with a plain type conversion; reactor.go
// itself stays free of any platform-specific import so it builds on
// every target, including the ones with no Reactor backend at all.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
)

// Waker is invoked when an observed interest on a registered fd becomes
// ready. Reactor knows nothing else about it.
type Waker interface {
	Wake()
}

// Token is an opaque handle to a single fd's registration, returned by
// Register and consumed by SetWaker/Deregister.
type Token int

// errBadToken is api.ErrNotFound: SetWaker/Deregister on an unknown or
// already-deregistered token is the same "no such resource" condition
// the rest of the runtime reports through the shared api error set.
var errBadToken = api.ErrNotFound

type registration struct {
	fd     int
	live   bool
	want   Interest
	readW  Waker
	writeW Waker
}

// Reactor multiplexes readiness for a set of registered file
// descriptors plus an internal self-pipe, blocking in the readiness
// syscall no longer than the caller's requested max_wait.
type Reactor struct {
	mu   sync.Mutex
	regs []registration
	free []Token

	selfReadFD  int
	selfWriteFD int
}

// New constructs a Reactor with its self-pipe already created and
// registered for readability. Its implementation is platform-specific;
// see reactor_unix.go and reactor_windows.go.

// Close releases the self-pipe's file descriptors. It does not close
// any adapter-owned fd — those belong to their Registration, not the
// reactor. Its implementation is platform-specific.

// Notify wakes a blocked Turn from any goroutine by writing one byte to
// the self-pipe. A pending unread byte already satisfies any future
// wake, so EAGAIN/EWOULDBLOCK from the write is not an error. Its
// implementation is platform-specific.

// Register begins readiness observation of fd for the given interests,
// with no waker attached yet (attach one via SetWaker before the first
// Turn that might report fd ready, or it is missed).
func (r *Reactor) Register(fd int, want Interest) Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.free); n > 0 {
		tok := r.free[n-1]
		r.free = r.free[:n-1]
		r.regs[tok] = registration{fd: fd, live: true, want: want}
		return tok
	}
	r.regs = append(r.regs, registration{fd: fd, live: true, want: want})
	return Token(len(r.regs) - 1)
}

// SetWaker records the waker to fire the next time interest is observed
// ready on token's fd, replacing any previous waker for that interest.
// Per spec section 4.3's level-semantics note: an adapter that polls and
// finds the fd still not ready MUST call SetWaker again before
// returning pending, since each readiness edge delivers to at most the
// waker that was in the slot at the time.
func (r *Reactor) SetWaker(tok Token, interest Interest, w Waker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(tok) < 0 || int(tok) >= len(r.regs) || !r.regs[tok].live {
		return errBadToken
	}
	reg := &r.regs[tok]
	reg.want |= interest
	if interest&Readable != 0 {
		reg.readW = w
	}
	if interest&Writable != 0 {
		reg.writeW = w
	}
	return nil
}

// Deregister removes all reactor state for token's fd. No further
// wakers for that fd fire after this returns.
func (r *Reactor) Deregister(tok Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(tok) < 0 || int(tok) >= len(r.regs) || !r.regs[tok].live {
		return
	}
	r.regs[tok] = registration{}
	r.free = append(r.free, tok)
}

// maxWaitMillis mirrors internal/syscallshim.MaxWaitMillis. It is
// redeclared here rather than imported so this file has no
// platform-specific dependency; reactor_unix.go's Poll call is clamped
// to the same bound independently, at the syscall layer.
const maxWaitMillis = 60_000

// clampWait bounds a requested wait to [0, platform max].
func clampWait(d time.Duration) time.Duration {
	if d < 0 {
		d = 0
	}
	max := time.Duration(maxWaitMillis) * time.Millisecond
	if d > max {
		d = max
	}
	return d
}
