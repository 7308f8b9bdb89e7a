// Package memory is the controller's single source of truth for observed
// transaction state.
//
// The store owns five collections:
//   - a rolling buffer of the last 600 transaction events
//   - cumulative per-issuer and per-method profiles (never reset)
//   - a self-expiring suppression registry for issuers and methods
//   - bounded logs of detected patterns and executed actions
//   - an append-only log of evaluated outcomes
//
// It is a monitor: one mutex guards all state, every operation is
// linearizable, and all reads return copies. Windowed views used for
// detection and guardrail volume checks are always recomputed from the raw
// buffer, never derived from the cumulative profiles.
package memory
