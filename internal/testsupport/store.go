package testsupport

import (
	"context"
	"testing"

	"relink/internal/catalog"
	"relink/internal/config"
	"relink/internal/ledger"
	"relink/internal/store"
)

// MustOpenStore creates the content database for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg.Paths.ContentDB, store.Options{Create: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedCatalog inserts catalog entries or fails the test.
func SeedCatalog(t testing.TB, st *store.Store, entries ...catalog.Entry) {
	t.Helper()

	if err := st.SeedCatalog(context.Background(), entries...); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

// SeedContent inserts content items or fails the test.
func SeedContent(t testing.TB, st *store.Store, items ...store.ContentItem) {
	t.Helper()

	if err := st.SeedContent(context.Background(), items...); err != nil {
		t.Fatalf("seed content: %v", err)
	}
}

// Body returns the stored body of one content item or fails the test.
func Body(t testing.TB, st *store.Store, id int64) string {
	t.Helper()

	item, err := st.GetContent(context.Background(), id)
	if err != nil {
		t.Fatalf("get content %d: %v", id, err)
	}
	return item.Body
}

// MustOpenLedger opens the ledger named by cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l, err := ledger.Open(cfg.Paths.LedgerFile)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l
}

// Catalog returns a small catalog shared by pipeline tests.
func Catalog() []catalog.Entry {
	return []catalog.Entry{
		{ID: 9001, Name: "Red Vibe Deluxe", Slug: "red-vibe-deluxe", SKU: "RV-1", Kind: "simple"},
		{ID: 9002, Name: "Silk Wand", Slug: "acme-silk-wand", SKU: "SW-1", Kind: "simple"},
		{ID: 9003, Name: "The Velvet Rabbit Massager", Slug: "the-velvet-rabbit-massager", Kind: "simple"},
		{ID: 9004, Name: "Pocket Bullet Vibrator", Slug: "pocket-bullet-vibrator", Kind: "simple"},
		{ID: 9005, Name: "Midnight Lace Bodysuit", Slug: "midnight-lace-bodysuit", Kind: "variable"},
	}
}
