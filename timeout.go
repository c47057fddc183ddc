// File: timeout.go
//
// Timeout races an inner future against a Sleep: whichever becomes
// ready first decides the outcome, and the loser's resources are
// released immediately rather than waiting for the combinator itself
// to be discarded (spec section 6: "the loser's resources are released
// on drop"). Go has no Drop, so the future returned by Timeout performs
// the cancellation explicitly, calling Cancel on the loser the moment
// one side wins, as the Rust select! macro this is grounded on does.
package nara

import (
	"time"

	"github.com/miquels/nara/internal/task"
)

// TimeoutResult is the outcome of a Timeout future: either the inner
// future's value (TimedOut false) or nothing (TimedOut true) because
// the deadline elapsed first.
type TimeoutResult[T any] struct {
	Value    T
	TimedOut bool
}

type timeoutFuture[T any] struct {
	inner task.Future[T]
	sleep *Sleep
}

// cancelable is implemented by *Sleep and by any other future in this
// tree that holds a timer wheel entry or other resource needing
// release the moment it loses a race. timeoutFuture type-asserts for
// it rather than requiring every task.Future[T] to carry a Cancel
// method, the same way drivePoll in internal/task/registry.go
// type-asserts for the narrower panicker interface instead of widening
// the core Future contract.
type cancelable interface{ Cancel() }

// Timeout returns a Future that resolves to the inner future's value if
// it completes within d, or a TimedOut result if d elapses first.
// Whichever side loses the race has its resources released immediately
// rather than lingering until the combinator itself is discarded: the
// winning sleep cancels inner if inner implements cancelable, and the
// winning inner cancels the sleep's wheel entry, matching
// original_source/src/time.rs's Drop for Timeout, which drops the
// loser's Sleep and cancels its entry as soon as the winner resolves.
func Timeout[T any](rt *Runtime, inner task.Future[T], d time.Duration) task.Future[TimeoutResult[T]] {
	return &timeoutFuture[T]{inner: inner, sleep: rt.Sleep(d)}
}

// Poll implements task.Future[TimeoutResult[T]]. Both the inner future
// and the sleep are polled with the same waker every pending call: a
// wake-up from either one must re-drive this combinator, since either
// could be the side that just became ready.
func (f *timeoutFuture[T]) Poll(w task.Waker) (TimeoutResult[T], bool) {
	if v, ready := f.inner.Poll(w); ready {
		f.sleep.Cancel()
		return TimeoutResult[T]{Value: v}, true
	}
	if _, ready := f.sleep.Poll(w); ready {
		if c, ok := f.inner.(cancelable); ok {
			c.Cancel()
		}
		var zero T
		return TimeoutResult[T]{Value: zero, TimedOut: true}, true
	}
	return TimeoutResult[T]{}, false
}
