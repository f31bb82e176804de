package catalog

import "errors"

// ErrEmptyCatalog reports that no usable entries were supplied. Nothing can be
// matched without a catalog, so callers treat this as a configuration error.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Entry is one addressable item of the current catalog.
type Entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	SKU  string `json:"sku,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// LoadStats summarises an index build.
type LoadStats struct {
	Loaded        int
	Skipped       int
	SecondaryKeys int
	Collisions    int
}
