// control/runtime_config.go
// Author: momentics <momentics@gmail.com>
//
// Typed accessors for the runtime tunables held in a ConfigStore: the
// ceiling on a reactor Turn's wait, and the blocking-offload pool's
// worker cap and idle lifetime. Keeping these as
// named keys in the generic store (rather than a dedicated struct type)
// matches how config.go's hot-reload listeners already expect to observe
// change — a typed wrapper would need its own reload path.
package control

import "time"

const (
	KeyBlockingMaxWorkers = "blocking.max_workers"
	KeyBlockingIdleLife   = "blocking.idle_lifetime"
	KeyReactorMaxWait     = "reactor.max_wait"
)

// RuntimeConfig reads typed runtime tunables out of a ConfigStore,
// falling back to the given defaults for any key not yet set.
type RuntimeConfig struct {
	store *ConfigStore
}

// NewRuntimeConfig wraps an existing ConfigStore for typed tunable
// access. A nil store is valid and behaves as if empty.
func NewRuntimeConfig(store *ConfigStore) RuntimeConfig {
	return RuntimeConfig{store: store}
}

func (rc RuntimeConfig) snapshot() map[string]any {
	if rc.store == nil {
		return nil
	}
	return rc.store.GetSnapshot()
}

// BlockingMaxWorkers returns the configured worker cap for the
// spawn_blocking pool, or def if unset.
func (rc RuntimeConfig) BlockingMaxWorkers(def int) int {
	if v, ok := rc.snapshot()[KeyBlockingMaxWorkers].(int); ok {
		return v
	}
	return def
}

// BlockingIdleLifetime returns the configured idle-exit duration for
// spawn_blocking workers, or def if unset.
func (rc RuntimeConfig) BlockingIdleLifetime(def time.Duration) time.Duration {
	if v, ok := rc.snapshot()[KeyBlockingIdleLife].(time.Duration); ok {
		return v
	}
	return def
}

// ReactorMaxWait returns the configured ceiling on a single reactor
// Turn's wait, or def if unset.
func (rc RuntimeConfig) ReactorMaxWait(def time.Duration) time.Duration {
	if v, ok := rc.snapshot()[KeyReactorMaxWait].(time.Duration); ok {
		return v
	}
	return def
}
