// Package ledger persists every resolution decision for legacy directive
// occurrences.
//
// The ledger is the single source of truth for human and automatic
// judgments. Records are keyed by (content id, legacy id) and move once from
// pending to a terminal state. Pattern memory (slug decisions, rejected
// slugs, discontinued legacy ids) is derived from the records and kept in step
// with every write so one decision can settle many occurrences.
//
// The snapshot is a JSON document written atomically after each mutating
// step. An exclusive file lock keeps two writers from interleaving.
package ledger
