// File: internal/task/waker.go
//
// Waker is the callable bound to a task identifier described in spec
// section 3 of the data model: invoking it enqueues the task unless
// already enqueued. Wakers are cheap to clone (copy the struct) and may
// be invoked from any goroutine — the coalescing flag lives on the Task
// cell as an atomic, so a cross-thread invocation never touches
// anything the executor goroutine isn't prepared to share.
package task

// Waker requests that the task it is bound to be polled again. The zero
// value is not usable; Spawn binds one to each task it creates, and the
// registry hands it to the task's future on every Poll.
type Waker struct {
	id uint64
	r  *Registry
}

// Wake enqueues the bound task unless it is already in the ready-queue.
// This is the only part of the task system that may run concurrently
// with the executor goroutine (a spawn_blocking worker, for one, calls
// it from its own goroutine when the JoinHandle it completes has a
// joiner waiting).
func (w Waker) Wake() {
	w.r.enqueue(w.id)
}

// ID returns the task identifier this waker is bound to. Exposed so
// higher-level futures (timer, reactor adapters) can debug-log without
// reaching into Registry internals.
func (w Waker) ID() uint64 { return w.id }
