// File: internal/task/readyqueue.go
//
// The ready-queue is the FIFO sequence of task identifiers awaiting a
// poll. It is backed by github.com/eapache/queue's auto-resizing ring
// buffer — declared as a dependency by our reference stack but never
// actually wired to anything there; here it finally earns its keep.
//
// eapache/queue gives O(1) amortized push/pop and grows by doubling, but
// it is not itself concurrency-safe and it has no notion of "already
// contains this value" — both properties the spec requires (wakers may
// fire from any goroutine; the ready-queue must never hold a duplicate
// identifier). readyQueue supplies both: a mutex around the ring, and a
// per-task "in-queue" flag instead of a scan for duplicates.
package task

import (
	"sync"

	"github.com/eapache/queue"
)

type readyQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newReadyQueue() *readyQueue {
	return &readyQueue{q: queue.New()}
}

// push appends id to the queue. Callers are responsible for the
// in-queue coalescing check (see Task.tryEnqueue) — readyQueue itself
// has no opinion on duplicates, matching eapache/queue's own contract.
func (rq *readyQueue) push(id uint64) {
	rq.mu.Lock()
	rq.q.Add(id)
	rq.mu.Unlock()
}

// popAll drains the queue into a snapshot slice, in FIFO order. This is
// the "snapshot-drain" step of the executor's tick loop: tasks that wake
// other tasks during this drain are enqueued for the next tick, never
// the current one.
func (rq *readyQueue) popAll() []uint64 {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	n := rq.q.Length()
	if n == 0 {
		return nil
	}
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		ids[i] = rq.q.Remove().(uint64)
	}
	return ids
}

// len reports the number of pending task identifiers. Used by tests and
// by the executor to decide whether it may block in the reactor.
func (rq *readyQueue) len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.q.Length()
}
