// File: internal/task/registry.go
//
// Registry is the task system: it owns every live Task cell, the
// ready-queue, and the id allocator. It implements the polling protocol
// of spec section 4.4 steps 1-6. Registry itself is not safe for
// concurrent mutation from multiple goroutines — only enqueue (reached
// through a Waker) may be called from outside the executor's goroutine,
// and it is the one method built on primitives (readyQueue's mutex, the
// per-task atomic flag) that make that safe.
package task

import (
	"runtime/debug"
	"sync"
)

// Notifier is called after enqueue successfully transitions a task into
// the ready-queue. The runtime wires this to the reactor's self-pipe so
// a cross-thread wake unblocks a blocked Turn promptly; same-thread
// wakes harmlessly notify too; the cost is one extra non-blocking pipe
// write, paid only on an edge the reactor already expects to drain.
type Notifier func()

type Registry struct {
	mu     sync.Mutex
	tasks  map[uint64]*Task
	nextID uint64
	ready  *readyQueue
	notify Notifier
}

// NewRegistry returns an empty task system. notify may be nil, in which
// case wakes are purely in-process (used by tests that never block in
// a reactor Turn).
func NewRegistry(notify Notifier) *Registry {
	return &Registry{
		tasks:  make(map[uint64]*Task),
		ready:  newReadyQueue(),
		notify: notify,
	}
}

func (r *Registry) allocID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// enqueue is what a Waker calls. It is the only Registry method meant to
// be invoked from a goroutine other than the executor's.
func (r *Registry) enqueue(id uint64) {
	r.mu.Lock()
	t := r.tasks[id]
	r.mu.Unlock()
	if t == nil {
		// Task already completed and was removed from the registry;
		// a late or duplicate wake on it is simply discarded.
		return
	}
	if !t.tryEnqueue() {
		return
	}
	r.ready.push(id)
	if r.notify != nil {
		r.notify()
	}
}

// Spawn allocates a task cell for fut, pushes it onto the ready-queue
// for its first poll, and returns a JoinHandle observing its output.
func Spawn[T any](r *Registry, fut Future[T]) *JoinHandle[T] {
	id := r.allocID()
	handle := newJoinHandle[T](id)
	t := &Task{id: id}
	t.waker = Waker{id: id, r: r}
	t.comp = &taskTrampoline[T]{fut: fut, handle: handle}

	r.mu.Lock()
	r.tasks[id] = t
	r.mu.Unlock()

	// A freshly spawned task is always immediately ready for its first
	// poll, so go straight through the same enqueue path a wake would
	// take rather than duplicating the push-and-notify logic.
	r.enqueue(id)
	return handle
}

// PendingCount reports how many task identifiers currently sit in the
// ready-queue. Exposed for tests asserting no runaway queue growth.
func (r *Registry) PendingCount() int {
	return r.ready.len()
}

// Tick drains the ready-queue into a snapshot and polls every task in
// it once, in FIFO order (the snapshot-drain "fair tick" of spec
// section 4.5 step 3a). Tasks woken during this tick — including a task
// that wakes itself — run on the next tick, never this one. Returns the
// number of tasks polled.
func (r *Registry) Tick() int {
	ids := r.ready.popAll()
	for _, id := range ids {
		r.pollOne(id)
	}
	return len(ids)
}

func (r *Registry) pollOne(id uint64) {
	r.mu.Lock()
	t := r.tasks[id]
	r.mu.Unlock()
	if t == nil {
		return
	}

	t.inQueue.Store(false)

	ready := r.drivePoll(t)
	if ready {
		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()
	}
}

// drivePoll invokes the task's state machine once, recovering a panic
// into the task's JoinHandle instead of letting it escape the executor
// (spec section 7: TaskPanicked never kills block_on).
func (r *Registry) drivePoll(t *Task) (ready bool) {
	type panicker interface{ completePanic(*PanicValue) }

	defer func() {
		if rec := recover(); rec != nil {
			if pc, ok := t.comp.(panicker); ok {
				pc.completePanic(&PanicValue{Value: rec, Stack: debug.Stack()})
			}
			ready = true
		}
	}()
	return t.comp.poll(t.waker)
}

// Has reports whether id is still live in the registry (not yet
// completed). Used by the executor to decide when the root task is
// done.
func (r *Registry) Has(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}
