// File: internal/task/future.go
//
// Future is the computation object every task wraps: a state machine
// that, given a waker, advances and reports ready(value) or pending.
// There is no language-level async/await in Go, so futures in this
// runtime are written by hand the way spec section 9's "deep-inheritance
// substitute" describes adapters: plain types implementing one
// cooperation point, not a class hierarchy.
package task

// Future is polled by the executor. A call that returns ready==false
// (pending) must have registered w (or a clone of it) with whatever it
// is waiting on — the reactor, the timer wheel, a channel, or a
// JoinHandle's join-waiter set — before returning, or it may never be
// polled again.
type Future[T any] interface {
	Poll(w Waker) (value T, ready bool)
}

// FutureFunc adapts a plain poll function to the Future interface, the
// same convenience std::future::poll_fn gives the original runtime.
type FutureFunc[T any] func(w Waker) (T, bool)

func (f FutureFunc[T]) Poll(w Waker) (T, bool) { return f(w) }

// erasedTask is the type-erased trampoline every Task cell stores,
// hiding the future's output type from the registry the same way the
// original runtime boxes a Future<Output=()> around the user's future.
type erasedTask interface {
	poll(w Waker) bool
}

type taskTrampoline[T any] struct {
	fut    Future[T]
	handle *JoinHandle[T]
}

func (t *taskTrampoline[T]) poll(w Waker) bool {
	v, ready := t.fut.Poll(w)
	if !ready {
		return false
	}
	t.handle.complete(v)
	return true
}

// completePanic lets the registry mark the underlying JoinHandle
// panicked without needing to know T.
func (t *taskTrampoline[T]) completePanic(p *PanicValue) {
	t.handle.completePanic(p)
}
