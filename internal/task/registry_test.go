package task

import "testing"

// countdownFuture becomes ready after n polls, waking itself each time
// until then — exercising the coalescing/self-wake path.
type countdownFuture struct{ n int }

func (f *countdownFuture) Poll(w Waker) (int, bool) {
	if f.n <= 0 {
		return 0, true
	}
	f.n--
	w.Wake()
	return 0, false
}

func TestSpawnAndTick(t *testing.T) {
	r := NewRegistry(nil)
	h := Spawn[int](r, &countdownFuture{n: 3})

	for i := 0; i < 10 && r.Has(h.ID()); i++ {
		r.Tick()
	}
	if r.Has(h.ID()) {
		t.Fatal("task did not complete after repeated self-wakes")
	}
	if v, ok := h.TryJoin(); !ok || v != 0 {
		t.Fatalf("expected (0, true), got (%v, %v)", v, ok)
	}
}

func TestWakeCoalescesDuplicateEnqueue(t *testing.T) {
	r := NewRegistry(nil)
	var pollCount int
	fut := FutureFunc[int](func(w Waker) (int, bool) {
		pollCount++
		if pollCount == 1 {
			// Wake twice in a row; the second call must be a no-op
			// since the task is already in the ready-queue.
			w.Wake()
			w.Wake()
			return 0, false
		}
		return 42, true
	})
	Spawn[int](r, fut)

	r.Tick() // first poll, registers two wakes, coalesced into one
	if r.PendingCount() != 1 {
		t.Fatalf("expected exactly 1 coalesced ready entry, got %d", r.PendingCount())
	}
	r.Tick() // second poll completes
	if pollCount != 2 {
		t.Fatalf("expected 2 polls, got %d", pollCount)
	}
}

func TestPanicRecoveredAndReraisedOnJoin(t *testing.T) {
	r := NewRegistry(nil)
	fut := FutureFunc[int](func(w Waker) (int, bool) {
		panic("boom")
	})
	h := Spawn[int](r, fut)
	r.Tick()

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected TryJoin to re-panic")
		}
		pv, ok := rec.(*PanicValue)
		if !ok {
			t.Fatalf("expected *PanicValue, got %T", rec)
		}
		if pv.Value != "boom" {
			t.Fatalf("expected panic value %q, got %v", "boom", pv.Value)
		}
	}()
	h.TryJoin()
}

func TestDetachIsNoOp(t *testing.T) {
	r := NewRegistry(nil)
	h := Spawn[int](r, FutureFunc[int](func(w Waker) (int, bool) { return 7, true }))
	r.Tick()
	h.Detach()
	if v, ok := h.TryJoin(); !ok || v != 7 {
		t.Fatalf("expected task to still be joinable after Detach, got (%v, %v)", v, ok)
	}
}

func TestJoinHandlePollDedupsSameWaker(t *testing.T) {
	r := NewRegistry(nil)
	h := Spawn[int](r, FutureFunc[int](func(w Waker) (int, bool) { return 0, false }))

	w := Waker{id: h.ID(), r: r}
	for i := 0; i < 5; i++ {
		h.Poll(w)
	}
	if n := len(h.inner.waiters); n != 1 {
		t.Fatalf("expected 1 waiter after 5 polls with the same waker, got %d", n)
	}
}

func TestCrossGoroutineWake(t *testing.T) {
	r := NewRegistry(nil)
	woken := make(chan struct{})
	var w Waker
	fut := FutureFunc[int](func(waker Waker) (int, bool) {
		if w.ID() == 0 {
			w = waker
			go func() {
				w.Wake()
				close(woken)
			}()
			return 0, false
		}
		return 99, true
	})
	h := Spawn[int](r, fut)
	r.Tick()
	<-woken
	r.Tick()
	if v, ok := h.TryJoin(); !ok || v != 99 {
		t.Fatalf("expected (99, true), got (%v, %v)", v, ok)
	}
}
