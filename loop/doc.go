// Package loop provides the bounded iteration primitives workflows are built
// from.
//
// Counted runs a body for a total computed once at loop entry, exposing a
// 1-based Iteration; a zero total takes an explicit fallback branch instead of
// silently doing nothing. Each is Counted over a slice snapshot. BoundedRetry
// re-runs a body while a sufficiency predicate is unmet, never more than
// maxAttempts times. Gather fans independent calls out to a bounded worker
// pool and returns results in input order so callers can fold them into
// accumulators from a single goroutine.
//
// Every primitive checks the context between iterations and stops with the
// context error once it is cancelled.
package loop
