// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime tunables and metrics telemetry for the async runtime core.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Reload listeners on the config store
//   - Metrics telemetry contracts
package control
