// File: sleep.go
//
// Sleep is a Future that becomes ready once a deadline has passed,
// built directly on the runtime's timer wheel. It mirrors
// original_source/src/time.rs's Sleep/sleep_until: inserting into the
// wheel on first construction, arming a waker on first poll, and
// relying on Wheel.Cancel for the "drop cancels timer" behavior the
// timeout combinator needs (spec section 8 scenario 5).
package nara

import (
	"time"

	"github.com/miquels/nara/internal/task"
	"github.com/miquels/nara/internal/timer"
)

// Sleep is a Future[struct{}] that completes once its deadline has
// passed. Construct with Runtime.Sleep or Runtime.SleepUntil; the zero
// value is not usable.
type Sleep struct {
	wheel    *timer.Wheel
	deadline time.Time
	id       timer.EntryID
	done     bool
}

// Sleep returns a Future ready after d has elapsed.
func (rt *Runtime) Sleep(d time.Duration) *Sleep {
	return rt.SleepUntil(time.Now().Add(d))
}

// SleepUntil returns a Future ready once deadline has passed. The
// wheel entry is created immediately, so NextDeadline/DrainExpired see
// it even before the first Poll.
func (rt *Runtime) SleepUntil(deadline time.Time) *Sleep {
	s := &Sleep{wheel: rt.wheel, deadline: deadline}
	s.id = rt.wheel.Insert(deadline)
	return s
}

// Deadline returns when s becomes ready.
func (s *Sleep) Deadline() time.Time { return s.deadline }

// IsElapsed reports whether s's deadline has already passed, without
// consuming the wheel entry or requiring a poll.
func (s *Sleep) IsElapsed() bool { return !time.Now().Before(s.deadline) }

// Cancel removes s's entry from the timer wheel if still present. Safe
// to call after s has already completed (a no-op then). The timeout
// combinator's loser calls this so an unneeded sleep entry never lingers
// in the wheel (spec section 6's drop-releases-resources requirement).
func (s *Sleep) Cancel() {
	if !s.done {
		s.wheel.Cancel(s.id)
		s.done = true
	}
}

// Poll implements task.Future[struct{}]. Matching spec section 4.2's
// integration note exactly: first poll already inserted the entry (in
// SleepUntil); every pending poll after that re-registers whichever
// waker is current, since nothing guarantees the same waker polls twice
// in a row.
func (s *Sleep) Poll(w task.Waker) (struct{}, bool) {
	if s.done {
		return struct{}{}, true
	}
	if s.IsElapsed() {
		s.done = true
		return struct{}{}, true
	}
	s.wheel.SetWaker(s.id, w)
	return struct{}{}, false
}
