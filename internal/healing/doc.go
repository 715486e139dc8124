// Package healing implements the self-healing coordination engine: the
// component that takes a classified test failure, selects and runs pluggable
// recovery strategies in a deterministic order, scores each attempt's
// confidence, aggregates a final healing decision, and tracks statistics
// safely under concurrent use.
//
// # Architecture
//
// The package is organized leaf-first:
//
//   - Classifier maps a raw error message to a FailureType.
//   - Registry holds Strategy plugins indexed by the failure types they
//     declare support for, keyed by (name, semantic version).
//   - Scorer computes a bounded [0,1] aggregated confidence per attempt.
//   - StatisticsTracker keeps concurrency-safe aggregate counters.
//   - Coordinator orchestrates classification, candidate selection,
//     sequential strategy invocation, aggregation, and statistics.
//
// # Fault isolation
//
// Strategies are independently authored plugins. A strategy that returns an
// error, panics, or overruns its deadline is converted into a synthetic
// failed attempt; it never destabilizes other strategies or escapes
// Coordinator.Heal. Heal itself never returns a Go error: healing is
// advisory and callers must always be able to proceed to their own failure
// path.
//
// # Concurrency
//
// Heal is safe for unbounded concurrent invocation from independently
// failing tests. Within a single call, strategies run sequentially because
// attempts may have ordering-sensitive side effects on a shared test
// environment and the first good-enough attempt short-circuits the rest.
package healing
