// File: channel/channel.go
//
// Package channel is a minimal unbounded, single-reader,
// cross-thread-sendable channel: Send may be called from any goroutine
// (a spawn_blocking worker, say) and wakes at most one pending Recv,
// matching spec.md's data-model note that wakers "may be invoked from
// any thread." It is grounded on
// original_source/src/mpsc.rs's unbounded_channel, generalized from
// std::sync::mpsc's unbounded channel plus a Mutex<Option<Waker>> rx
// slot into github.com/eapache/queue's ring buffer (already wired into
// internal/task's ready-queue) plus a single task.Waker slot.
//
// This package exists only to drive the self-pipe/cross-thread wake
// scenario end to end; it has no invariant beyond "a Send from any
// goroutine wakes at most one pending Recv."
package channel

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/miquels/nara/internal/task"
)

type state[T any] struct {
	mu      sync.Mutex
	q       *queue.Queue
	closed  bool
	rxWaker task.Waker
	hasRx   bool
}

// Sender is the cross-thread-sendable half of a channel. Sender is safe
// for concurrent use by multiple goroutines, and may be cloned by
// copying the struct: all copies share the same underlying state.
type Sender[T any] struct{ s *state[T] }

// Receiver is the single-reader half of a channel. Unlike Sender, a
// Receiver must not be used from more than one goroutine at a time —
// only one Recv future may be pending on it.
type Receiver[T any] struct{ s *state[T] }

// New returns a fresh unbounded channel's two halves.
func New[T any]() (Sender[T], Receiver[T]) {
	s := &state[T]{q: queue.New()}
	return Sender[T]{s}, Receiver[T]{s}
}

// Send enqueues value and wakes a pending Recv, if any. It never blocks
// and never fails except after Close has been called on the channel.
func (tx Sender[T]) Send(value T) error {
	tx.s.mu.Lock()
	if tx.s.closed {
		tx.s.mu.Unlock()
		return ErrClosed
	}
	tx.s.q.Add(value)
	w, hasW := tx.s.rxWaker, tx.s.hasRx
	tx.s.hasRx = false
	tx.s.mu.Unlock()
	if hasW {
		w.Wake()
	}
	return nil
}

// Close marks the channel closed from the sender side. A subsequent
// Recv still drains whatever was already queued before reporting done.
func (tx Sender[T]) Close() {
	tx.s.mu.Lock()
	tx.s.closed = true
	w, hasW := tx.s.rxWaker, tx.s.hasRx
	tx.s.hasRx = false
	tx.s.mu.Unlock()
	if hasW {
		w.Wake()
	}
}

// ErrClosed is returned by Send once the channel has been closed.
var ErrClosed = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "channel: closed" }

// Recv returns a Future[RecvResult[T]] that resolves to the next queued
// value, or to the zero value with OK==false once the channel is closed
// and drained.
func (rx Receiver[T]) Recv() task.Future[RecvResult[T]] {
	return &recvFuture[T]{s: rx.s}
}

// RecvResult is the outcome of a Recv: a value (OK true) or channel
// closure (OK false).
type RecvResult[T any] struct {
	Value T
	OK    bool
}

type recvFuture[T any] struct{ s *state[T] }

func (f *recvFuture[T]) Poll(w task.Waker) (RecvResult[T], bool) {
	f.s.mu.Lock()
	if f.s.q.Length() > 0 {
		v := f.s.q.Remove().(T)
		f.s.mu.Unlock()
		return RecvResult[T]{Value: v, OK: true}, true
	}
	if f.s.closed {
		f.s.mu.Unlock()
		var zero T
		return RecvResult[T]{Value: zero, OK: false}, true
	}
	f.s.rxWaker = w
	f.s.hasRx = true
	f.s.mu.Unlock()
	return RecvResult[T]{}, false
}
