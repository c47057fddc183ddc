//go:build unix

// File: reactor/reactor_unix.go
//
// Turn, the reactor's blocking step, realized on top of the portable
// poll(2) syscall via internal/syscallshim. Every Unix variant (Linux,
// the BSDs, Darwin) shares this one implementation — there is no
// per-kernel fast path here, by design (spec section 1).
package reactor

import (
	"time"

	"github.com/miquels/nara/api"
	"github.com/miquels/nara/internal/syscallshim"
)

// New constructs a Reactor with its self-pipe already created and
// registered for readability.
func New() (*Reactor, error) {
	r, w, err := syscallshim.Pipe()
	if err != nil {
		return nil, err
	}
	return &Reactor{selfReadFD: r, selfWriteFD: w}, nil
}

// Close releases the self-pipe's file descriptors. It does not close
// any adapter-owned fd — those belong to their Registration, not the
// reactor.
func (r *Reactor) Close() error {
	err1 := syscallshim.Close(r.selfReadFD)
	err2 := syscallshim.Close(r.selfWriteFD)
	if err1 != nil {
		return err1
	}
	return err2
}

// Notify wakes a blocked Turn from any goroutine by writing one byte to
// the self-pipe. A pending unread byte already satisfies any future
// wake, so EAGAIN/EWOULDBLOCK from the write is not an error.
func (r *Reactor) Notify() {
	_ = syscallshim.Write1(r.selfWriteFD, 1)
}

// Turn blocks in the readiness-polling syscall for at most maxWait
// (clamped to the platform ceiling), then dispatches every observed
// readiness edge to its waker. Self-pipe bytes are drained and
// discarded — the self-pipe's only job is to unblock this call from
// another goroutine; it never carries a waker of its own.
func (r *Reactor) Turn(maxWait time.Duration) error {
	maxWait = clampWait(maxWait)

	r.mu.Lock()
	entries := make([]syscallshim.PollEntry, 0, len(r.regs)+1)
	// index 0 is always the self-pipe.
	entries = append(entries, syscallshim.PollEntry{FD: r.selfReadFD, Want: syscallshim.Readable})
	live := make([]Token, 0, len(r.regs))
	for tok, reg := range r.regs {
		if !reg.live || reg.want == 0 {
			continue
		}
		entries = append(entries, syscallshim.PollEntry{FD: reg.fd, Want: syscallshim.Interest(reg.want)})
		live = append(live, Token(tok))
	}
	r.mu.Unlock()

	_, err := syscallshim.Poll(entries, int(maxWait/time.Millisecond))
	if err != nil {
		// A failing poll(2) call is not retryable by this reactor (EINTR
		// aside, which syscallshim.Poll already retries internally); it
		// means the fd set itself is broken, so surface it as a fatal
		// syscall error rather than a plain error string.
		return api.NewError(api.ErrCodeSyscallFatal, "reactor: poll failed").WithContext("cause", err)
	}

	if entries[0].Ready != 0 {
		_ = syscallshim.DrainAll(r.selfReadFD)
	}

	for i, tok := range live {
		ready := entries[i+1].Ready
		if ready == 0 {
			continue
		}
		r.dispatch(tok, Interest(ready))
	}
	return nil
}

// dispatch takes the waker(s) registered for ready interests on tok,
// clearing their slots first so a re-registration during Wake cannot be
// lost. Per spec section 4.3, an adapter must re-register before
// reporting pending again; dispatch only ever delivers to whichever
// waker occupied the slot at poll time.
func (r *Reactor) dispatch(tok Token, ready Interest) {
	r.mu.Lock()
	if int(tok) >= len(r.regs) || !r.regs[tok].live {
		r.mu.Unlock()
		return
	}
	reg := &r.regs[tok]
	var readW, writeW Waker
	if ready&Readable != 0 {
		readW, reg.readW = reg.readW, nil
		reg.want &^= Readable
	}
	if ready&Writable != 0 {
		writeW, reg.writeW = reg.writeW, nil
		reg.want &^= Writable
	}
	r.mu.Unlock()

	if readW != nil {
		readW.Wake()
	}
	if writeW != nil {
		writeW.Wake()
	}
}
