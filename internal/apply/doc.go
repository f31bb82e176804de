// Package apply rewrites the content corpus from the ledger's terminal
// decisions.
//
// BuildPlan collects every approved and manual record into a legacy id to
// target mapping and collapses chains, so a legacy id approved "as" another
// legacy id lands on that id's final catalog target. Chains that loop, or end
// at a legacy id that is still undecided, are reported as anomalies and left
// out. Each resolved record's nearby link path is mapped to the canonical path
// of its final target.
//
// Engine.Run then reads the whole corpus, not only the items the ledger
// tracks, rewrites bodies in parallel, and writes back changed items one at a
// time. A second run against an unchanged ledger finds nothing to change.
package apply
