// Package match ranks catalog entries against the context signals of one
// directive occurrence.
//
// Each strategy (exact, variant, descriptor, contains, prefix, words, fuzzy)
// is an independent pure function over the catalog index that returns bounded
// confidences. The Engine runs them in priority order for the nearby slug and,
// in name-oriented form, for every usable text signal, then merges hits on the
// same entry: agreement between strategies or signals earns a small boost.
// Thresholds and word limits live in Policy so they can be tuned and audited
// without touching the strategies.
package match
