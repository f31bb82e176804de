// Package catalog loads the current product catalog once per run and builds
// the lookup structures every matching strategy relies on.
//
// An Index holds an exact slug map (with secondary keys for known distributor
// and article prefixes), a map of descriptor-stripped slugs, a normalized name
// map, and an inverted word index that deliberately leaves out colors, sizes,
// and generic product nouns. The index is immutable once built and safe to
// share across goroutines.
//
// Word lists and slug-variant rules live in descriptors.go so they stay
// auditable and tunable in one place.
package catalog
