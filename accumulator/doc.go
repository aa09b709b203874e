// Package accumulator provides the named, append-only state a workflow run
// carries between steps.
//
// Two shapes exist: Text (ordered string parts joined by a separator fixed at
// construction) and List[T] (ordered items). Neither supports overwrite or
// removal; the only way to shrink an accumulator is an explicit Reset, and a
// Store groups accumulators by Scope so a workflow can reset an entire scope
// (for example every per-iteration accumulator) at one documented point.
package accumulator
