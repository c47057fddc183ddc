// File: internal/task/task.go
//
// Task is the heap-allocated cell the registry polls: a unique id, the
// erased computation, and the in-queue flag that makes waker invocation
// idempotent (spec section 4.4's coalescing requirement). Task itself
// never touches the ready-queue directly — only a Waker bound to its id
// does — which keeps a task's lifetime independent of whichever wakers
// currently reference it.
package task

import "sync/atomic"

type Task struct {
	id      uint64
	comp    erasedTask
	inQueue atomic.Bool
	waker   Waker
}

// tryEnqueue flips inQueue from false to true and reports whether the
// flip happened. A waker only pushes the task id onto the ready-queue
// when this returns true; every other invocation is a coalesced no-op.
func (t *Task) tryEnqueue() bool {
	return t.inQueue.CompareAndSwap(false, true)
}
