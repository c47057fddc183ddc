//go:build unix

package nara

import (
	"sync"
	"testing"
	"time"

	"github.com/miquels/nara/api"
	"github.com/miquels/nara/control"
	"github.com/miquels/nara/internal/task"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

// TestSecondRuntimeRejected exercises the "nested block_on"-equivalent
// guard: only one Runtime may be installed at a time.
func TestSecondRuntimeRejected(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := New()
	if err != api.ErrRuntimeExists {
		t.Fatalf("expected ErrRuntimeExists, got %v", err)
	}
	_ = rt
}

// sleepRecorder sleeps for ms milliseconds, then appends ms to order
// (under mu) once woken. The Sleep is constructed lazily, on the first
// Poll, and kept in a struct field so every later Poll resumes the same
// wheel entry instead of inserting a new one.
type sleepRecorder struct {
	rt    *Runtime
	ms    int
	order *[]int
	mu    *sync.Mutex
	sleep *Sleep
}

func (s *sleepRecorder) Poll(w task.Waker) (struct{}, bool) {
	if s.sleep == nil {
		s.sleep = s.rt.Sleep(time.Duration(s.ms) * time.Millisecond)
	}
	if _, ready := s.sleep.Poll(w); !ready {
		return struct{}{}, false
	}
	s.mu.Lock()
	*s.order = append(*s.order, s.ms)
	s.mu.Unlock()
	return struct{}{}, true
}

// sleepOrderRoot spawns three sleepRecorders on first Poll and
// completes once every one of their JoinHandles has.
type sleepOrderRoot struct {
	rt      *Runtime
	order   *[]int
	mu      *sync.Mutex
	started bool
	handles []*task.JoinHandle[struct{}]
}

func (r *sleepOrderRoot) Poll(w task.Waker) (struct{}, bool) {
	if !r.started {
		r.started = true
		for _, ms := range []int{30, 10, 20} {
			h := Spawn[struct{}](r.rt, &sleepRecorder{rt: r.rt, ms: ms, order: r.order, mu: r.mu})
			r.handles = append(r.handles, h)
		}
	}
	allDone := true
	for _, h := range r.handles {
		if _, ready := h.Poll(w); !ready {
			allDone = false
		}
	}
	return struct{}{}, allDone
}

func TestSleepOrdering(t *testing.T) {
	rt := newTestRuntime(t)

	var mu sync.Mutex
	var order []int
	root := &sleepOrderRoot{rt: rt, order: &order, mu: &mu}
	BlockOn[struct{}](rt, root)

	if len(order) != 3 || order[0] != 10 || order[1] != 20 || order[2] != 30 {
		t.Fatalf("expected sleeps to complete in order [10 20 30], got %v", order)
	}
}

// blockingProbe offloads f via SpawnBlocking on first Poll and reports
// once that JoinHandle resolves.
type blockingProbe[T any] struct {
	rt     *Runtime
	f      func() T
	handle *task.JoinHandle[T]
}

func (b *blockingProbe[T]) Poll(w task.Waker) (T, bool) {
	if b.handle == nil {
		b.handle = SpawnBlocking(b.rt, b.f)
	}
	return b.handle.Poll(w)
}

func TestSpawnBlockingResolvesAfterClosureReturns(t *testing.T) {
	rt := newTestRuntime(t)
	start := time.Now()

	elapsed := BlockOn[time.Duration](rt, &blockingProbe[time.Duration]{
		rt: rt,
		f: func() time.Duration {
			time.Sleep(100 * time.Millisecond)
			return time.Since(start)
		},
	})

	if elapsed < 80*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Fatalf("expected spawn_blocking to take ~100ms, took %v", elapsed)
	}
}

// timeoutProbe constructs the Timeout combinator once (lazily) and
// delegates every subsequent Poll to that same instance.
type timeoutProbe struct {
	rt     *Runtime
	inner  *Sleep
	combo  task.Future[TimeoutResult[struct{}]]
	d      time.Duration
}

func (p *timeoutProbe) Poll(w task.Waker) (TimeoutResult[struct{}], bool) {
	if p.combo == nil {
		p.inner = p.rt.Sleep(time.Second)
		p.combo = Timeout[struct{}](p.rt, p.inner, p.d)
	}
	return p.combo.Poll(w)
}

func TestTimeoutCancelsLoserSleep(t *testing.T) {
	rt := newTestRuntime(t)

	start := time.Now()
	result := BlockOn[TimeoutResult[struct{}]](rt, &timeoutProbe{rt: rt, d: 50 * time.Millisecond})
	elapsed := time.Since(start)

	if !result.TimedOut {
		t.Fatal("expected TimedOut result")
	}
	if elapsed < 40*time.Millisecond || elapsed > 150*time.Millisecond {
		t.Fatalf("expected timeout around 50ms, took %v", elapsed)
	}
	if rt.Wheel().Len() != 0 {
		t.Fatalf("expected no pending timer entries after timeout combinator resolves, got %d", rt.Wheel().Len())
	}
}

// TestConfigStorePrepopulatedBeforeNew exercises construction-time
// wiring: values set in a ConfigStore before NewWithConfig sees it are
// visible through the Runtime's typed Config, and ConfigStore returns
// that same store.
func TestConfigStorePrepopulatedBeforeNew(t *testing.T) {
	store := control.NewConfigStore()
	store.SetConfig(map[string]any{
		control.KeyBlockingMaxWorkers: 3,
		control.KeyBlockingIdleLife:   10 * time.Millisecond,
	})

	rt, err := NewWithConfig(store)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	if got := rt.Config().BlockingMaxWorkers(16); got != 3 {
		t.Fatalf("BlockingMaxWorkers: got %d, want 3", got)
	}
	if rt.ConfigStore() != store {
		t.Fatal("ConfigStore() did not return the store passed to NewWithConfig")
	}
}

// TestReactorMaxWaitLiveReload exercises the hot-reload path BlockOn
// relies on: SetConfig after New, with the Runtime already live, takes
// effect on the very next tick because BlockOn reads ReactorMaxWait
// fresh from the store every time through the loop rather than caching
// it at construction.
func TestReactorMaxWaitLiveReload(t *testing.T) {
	rt := newTestRuntime(t)

	if got := rt.Config().ReactorMaxWait(0); got != 0 {
		t.Fatalf("expected default ReactorMaxWait 0 before any SetConfig, got %v", got)
	}

	rt.ConfigStore().SetConfig(map[string]any{control.KeyReactorMaxWait: 5 * time.Second})

	if got := rt.Config().ReactorMaxWait(0); got != 5*time.Second {
		t.Fatalf("ReactorMaxWait after live SetConfig: got %v, want 5s", got)
	}
}
