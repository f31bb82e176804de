// Package store adapts the SQLite database holding content items and the
// current catalog.
//
// Content items are read in bulk for scanning and written back one at a time
// by the apply step. Catalog entries are read in bulk to build the catalog
// index. The schema is embedded; a database created by an incompatible
// version is refused with ErrSchemaMismatch.
package store
