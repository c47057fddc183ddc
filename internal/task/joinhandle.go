// File: internal/task/joinhandle.go
//
// JoinHandle surfaces a task's eventual output. Dropping it (letting it
// become unreachable) detaches: the task still runs to completion, its
// output is simply discarded. Awaiting it registers the caller's waker
// in the join-waiter set; those waiters fire once, in registration
// order, when the task completes.
package task

import "sync"

// PanicValue wraps a recovered panic so a joiner can tell a task panic
// apart from a normal completion. Joining a handle whose task panicked
// re-raises the panic in the joiner's goroutine, exactly as spec
// section 7 requires ("re-raised on join").
type PanicValue struct {
	Value any
	Stack []byte
}

type joinInner[T any] struct {
	mu      sync.Mutex
	done    bool
	value   T
	panicked *PanicValue
	waiters []Waker
}

// JoinHandle is the handle returned by Spawn and SpawnBlocking.
type JoinHandle[T any] struct {
	id    uint64
	inner *joinInner[T]
}

func newJoinHandle[T any](id uint64) *JoinHandle[T] {
	return &JoinHandle[T]{id: id, inner: &joinInner[T]{}}
}

// NewJoinHandle returns a JoinHandle not tied to any Registry task cell,
// along with the two functions that complete it. This is what
// spawn_blocking hands back in the reference prototype
// (threadpool.rs's ThreadPool::spawn constructs a bare JoinHandle::new(0)
// rather than registering a task): the blocking pool's worker goroutine
// is the only writer, and joining it is just a Future poll like any
// other, so it needs no ready-queue entry of its own.
func NewJoinHandle[T any]() (handle *JoinHandle[T], complete func(T), completePanic func(*PanicValue)) {
	h := newJoinHandle[T](0)
	return h, h.complete, h.completePanic
}

// ID returns the task identifier this handle observes.
func (h *JoinHandle[T]) ID() uint64 { return h.id }

func (h *JoinHandle[T]) complete(v T) {
	h.inner.mu.Lock()
	h.inner.done = true
	h.inner.value = v
	waiters := h.inner.waiters
	h.inner.waiters = nil
	h.inner.mu.Unlock()
	for _, w := range waiters {
		w.Wake()
	}
}

// completePanic marks the task completed with a recovered panic instead
// of a value. Called by the registry when a task's poll panics.
func (h *JoinHandle[T]) completePanic(p *PanicValue) {
	h.inner.mu.Lock()
	h.inner.done = true
	h.inner.panicked = p
	waiters := h.inner.waiters
	h.inner.waiters = nil
	h.inner.mu.Unlock()
	for _, w := range waiters {
		w.Wake()
	}
}

// Poll implements Future[T]: it yields the task's output once, or
// registers w in the join-waiter set and reports pending. If the task
// panicked, Poll re-panics with the recovered value instead of
// returning. Re-polling with the same waker (the common case: one
// joiner task polling this handle on every tick until it resolves)
// replaces that waker's existing slot instead of appending another
// entry, so the waiter set stays bounded by the number of distinct
// joiners rather than the number of polls.
func (h *JoinHandle[T]) Poll(w Waker) (T, bool) {
	h.inner.mu.Lock()
	if !h.inner.done {
		replaced := false
		for i, existing := range h.inner.waiters {
			if existing.id == w.id && existing.r == w.r {
				h.inner.waiters[i] = w
				replaced = true
				break
			}
		}
		if !replaced {
			h.inner.waiters = append(h.inner.waiters, w)
		}
		h.inner.mu.Unlock()
		var zero T
		return zero, false
	}
	panicked := h.inner.panicked
	value := h.inner.value
	h.inner.mu.Unlock()
	if panicked != nil {
		panic(panicked)
	}
	return value, true
}

// TryJoin returns the task's output without blocking or registering any
// waker: (zero, false) if the task has not completed yet, the value and
// true once it has. It panics if the task itself panicked, same as
// Poll.
func (h *JoinHandle[T]) TryJoin() (T, bool) {
	h.inner.mu.Lock()
	defer h.inner.mu.Unlock()
	if !h.inner.done {
		var zero T
		return zero, false
	}
	if h.inner.panicked != nil {
		panic(h.inner.panicked)
	}
	return h.inner.value, true
}

// Detach is a documentation no-op: a JoinHandle that is simply dropped
// (goes out of scope, or this method is called to make the intent
// explicit) already behaves this way — the task keeps running and its
// result is discarded once produced. Dropping an already-completed
// JoinHandle is likewise a no-op.
func (h *JoinHandle[T]) Detach() {}
