// File: runtime.go
//
// Package nara is a minimal single-threaded cooperative asynchronous
// I/O runtime: one root Future is driven to completion on the calling
// goroutine, multiplexing file-descriptor readiness and timer
// expiration through a single blocking poll(2) call. Spawned tasks run
// cooperatively on that same goroutine; spawn_blocking is the one
// sanctioned escape hatch onto other goroutines for genuinely blocking
// work.
//
// Runtime mirrors the reference prototype's Runtime/InnerRuntime split
// (original_source/src/runtime.rs): a thin handle over a reactor, a
// timer wheel, a task registry, and a blocking-offload pool, with a
// package-level slot standing in for the prototype's thread_local —
// Go has no per-OS-thread storage a library can hook into the way
// Rust's thread_local! does, so nested New calls on the same process
// are rejected instead of being scoped per OS thread.
package nara

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/miquels/nara/api"
	"github.com/miquels/nara/control"
	"github.com/miquels/nara/internal/blocking"
	"github.com/miquels/nara/internal/task"
	"github.com/miquels/nara/internal/timer"
	"github.com/miquels/nara/reactor"
)

// current holds the process-wide active Runtime, if any. The reference
// prototype uses a thread-local weak pointer so each OS thread may host
// its own runtime; this core runs everything on one goroutine with no
// equivalent notion of "current thread" to key off, so one Runtime per
// process is the honest analogue rather than a fabricated thread-local.
var current struct {
	mu sync.Mutex
	rt *Runtime
}

// Runtime owns one reactor, one timer wheel, one task registry, and one
// spawn_blocking pool. Construct with New; there is no zero-value
// Runtime.
type Runtime struct {
	reactor     *reactor.Reactor
	wheel       *timer.Wheel
	tasks       *task.Registry
	blocking    *blocking.Pool
	configStore *control.ConfigStore
	config      control.RuntimeConfig
	metrics     *control.MetricsRegistry
}

// New installs a Runtime as the process's current one and returns it,
// backed by a fresh, empty control.ConfigStore — every tunable starts
// at its default until a caller sets it through ConfigStore.
func New() (*Runtime, error) {
	return NewWithConfig(control.NewConfigStore())
}

// NewWithConfig is New with a caller-supplied, possibly pre-populated
// ConfigStore: blocking-pool size and idle lifetime are read from it
// once at construction (the spawn_blocking pool cannot be resized
// after the fact), while the reactor's max-wait ceiling
// (control.KeyReactorMaxWait) is read fresh on every BlockOn tick, so
// calling store.SetConfig after New takes effect on this Runtime's very
// next Turn — the hot-reload path SPEC_FULL.md's ambient config section
// describes. A nil store is valid and behaves as all-defaults.
func NewWithConfig(store *control.ConfigStore) (*Runtime, error) {
	current.mu.Lock()
	defer current.mu.Unlock()
	if current.rt != nil {
		return nil, api.ErrRuntimeExists
	}

	rx, err := reactor.New()
	if err != nil {
		return nil, err
	}

	cfg := control.NewRuntimeConfig(store)
	rt := &Runtime{
		reactor:     rx,
		wheel:       timer.New(),
		configStore: store,
		config:      cfg,
		metrics:     control.NewMetricsRegistry(),
		blocking: blocking.New(
			cfg.BlockingMaxWorkers(blocking.DefaultMaxWorkers),
			cfg.BlockingIdleLifetime(blocking.DefaultIdleLifetime),
		),
	}
	rt.tasks = task.NewRegistry(rx.Notify)
	current.rt = rt
	return rt, nil
}

// Current returns the process's installed Runtime, or nil if none is
// installed. Adapters (tcp, channel) that need to reach the reactor or
// task registry without threading a *Runtime through every call use
// this the way the prototype's crate::runtime::current() does.
func Current() *Runtime {
	current.mu.Lock()
	defer current.mu.Unlock()
	return current.rt
}

// Close releases the Runtime's reactor self-pipe and uninstalls it as
// the process's current runtime. It does not wait for outstanding
// spawn_blocking work to finish; those goroutines exit on their own
// once their closure returns or their idle lifetime elapses.
func (rt *Runtime) Close() error {
	current.mu.Lock()
	if current.rt == rt {
		current.rt = nil
	}
	current.mu.Unlock()
	return rt.reactor.Close()
}

// Wheel exposes the runtime's timer wheel to sleep/timeout futures
// constructed outside this package.
func (rt *Runtime) Wheel() *timer.Wheel { return rt.wheel }

// Reactor exposes the runtime's reactor to I/O adapters (tcp) that
// register file descriptors for readiness observation.
func (rt *Runtime) Reactor() *reactor.Reactor { return rt.reactor }

// Metrics exposes the runtime's metrics registry.
func (rt *Runtime) Metrics() *control.MetricsRegistry { return rt.metrics }

// ConfigStore exposes the runtime's backing config store, nil only if
// this Runtime was built with NewWithConfig(nil). Callers reconfigure
// the live tunable control.KeyReactorMaxWait through SetConfig/OnReload
// here; control.KeyBlockingMaxWorkers and control.KeyBlockingIdleLife
// are read only once, at construction.
func (rt *Runtime) ConfigStore() *control.ConfigStore { return rt.configStore }

// Config exposes the typed view of ConfigStore that BlockOn itself
// reads from on every tick.
func (rt *Runtime) Config() control.RuntimeConfig { return rt.config }

// Spawn schedules fut to run cooperatively alongside whatever block_on
// loop is currently driving this Runtime (or the next one started),
// returning a JoinHandle for its eventual output or panic.
func Spawn[T any](rt *Runtime, fut task.Future[T]) *task.JoinHandle[T] {
	return task.Spawn(rt.tasks, fut)
}

// SpawnBlocking offloads f onto the blocking pool, immediately
// returning a JoinHandle that completes once f returns (or panics). f
// runs on its own goroutine, off the executor's single thread — the
// one sanctioned way to run genuinely blocking work without stalling
// every other task. The JoinHandle is not itself a scheduled task (it
// has no ready-queue entry of its own); joining it is an ordinary
// Future poll that registers the joiner's waker, woken directly by the
// worker goroutine when f returns, mirroring threadpool.rs's bare
// JoinHandle::new(0).
func SpawnBlocking[T any](rt *Runtime, f func() T) *task.JoinHandle[T] {
	handle, complete, completePanic := task.NewJoinHandle[T]()
	rt.blocking.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				completePanic(&task.PanicValue{Value: r, Stack: debug.Stack()})
			}
		}()
		complete(f())
	})
	return handle
}

// BlockOn drives fut to completion on the calling goroutine, running
// the tick loop of spec section 4.5: snapshot-drain the ready-queue and
// poll each task once, check whether the root task is done, compute the
// timer wheel's next deadline as the reactor's max wait, block in one
// Turn, then drain and wake every expired timer. It repeats until fut's
// JoinHandle reports ready.
//
// This mirrors executor.rs's block_on loop exactly, generalized from a
// single mpsc wakeup channel to the task registry's ready-queue plus
// reactor self-pipe, which serve the same purpose: unblocking the
// executor's wait exactly when there is new work.
func BlockOn[T any](rt *Runtime, fut task.Future[T]) T {
	handle := task.Spawn(rt.tasks, fut)
	var ticks, turns int64
	for {
		polled := rt.tasks.Tick()
		ticks++
		rt.metrics.Set("executor.ticks", ticks)
		rt.metrics.Set("executor.tasks_polled_last_tick", polled)

		if v, ready := handle.TryJoin(); ready {
			return v
		}

		ceiling := rt.config.ReactorMaxWait(0)
		if ceiling <= 0 {
			ceiling = 60 * time.Second
		}
		var wait time.Duration
		if deadline, ok := rt.wheel.NextDeadline(); ok {
			wait = time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			if wait > ceiling {
				wait = ceiling
			}
		} else if rt.tasks.PendingCount() > 0 {
			// Another tick already has ready work queued (e.g. a
			// same-tick self-wake); do not block at all.
			wait = 0
		} else {
			wait = ceiling
		}

		if err := rt.reactor.Turn(wait); err != nil {
			panic(err)
		}
		turns++
		rt.metrics.Set("executor.reactor_turns", turns)

		for _, w := range rt.wheel.DrainExpired(time.Now()) {
			w.Wake()
		}
	}
}
