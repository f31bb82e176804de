package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"relink/internal/catalog"
	"relink/internal/store"
	"relink/internal/testsupport"
)

func TestOpenRequiresExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if _, err := store.Open(context.Background(), path, store.Options{}); err == nil {
		t.Fatal("expected missing database to fail without Create")
	}
}

func TestOpenUninitializedDatabaseIsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE unrelated (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	db.Close()

	_, err = store.Open(context.Background(), path, store.Options{})
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	st.Close()

	db, err := sql.Open("sqlite", cfg.Paths.ContentDB)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	_, err = store.Open(context.Background(), cfg.Paths.ContentDB, store.Options{})
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSeedAndListContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedContent(t, st,
		store.ContentItem{ID: 3, Title: "Gift guide", Body: `<p>[product id="500"]</p>`},
		store.ContentItem{ID: 1, Title: "About", Kind: "page", Body: "<p>No tokens here.</p>"},
		store.ContentItem{ID: 2, Title: "Review", Body: `[add_to_cart id="12"]`},
	)

	all, err := st.ListContent(ctx, "")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	var ids []int64
	for _, item := range all {
		ids = append(ids, item.ID)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, ids); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	if all[0].Kind != "page" || all[1].Kind != "post" {
		t.Fatalf("unexpected kinds: %q %q", all[0].Kind, all[1].Kind)
	}
	if all[0].ModifiedAt.IsZero() {
		t.Fatal("expected modified_at to be stamped")
	}

	marked, err := st.ListContent(ctx, "[")
	if err != nil {
		t.Fatalf("ListContent marker: %v", err)
	}
	if len(marked) != 2 {
		t.Fatalf("expected 2 items containing a directive, got %d", len(marked))
	}

	count, err := st.CountContent(ctx)
	if err != nil || count != 3 {
		t.Fatalf("CountContent = %d, %v", count, err)
	}
}

func TestSeedContentRejectsInvalidID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := st.SeedContent(context.Background(), store.ContentItem{ID: 0}); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestUpdateBody(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.SeedContent(t, st, store.ContentItem{ID: 7, Title: "Post", Body: "old"})

	if err := st.UpdateBody(ctx, 7, "new"); err != nil {
		t.Fatalf("UpdateBody: %v", err)
	}
	if got := testsupport.Body(t, st, 7); got != "new" {
		t.Fatalf("body not updated: %q", got)
	}

	if err := st.UpdateBody(ctx, 99, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetContent(ctx, 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from GetContent, got %v", err)
	}
}

func TestSeedAndListCatalog(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedCatalog(t, st, testsupport.Catalog()...)
	// Reseeding updates in place.
	testsupport.SeedCatalog(t, st, catalog.Entry{ID: 9001, Name: "Red Vibe Deluxe II", Slug: "red-vibe-deluxe", SKU: "RV-1"})

	entries, err := st.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(entries) != len(testsupport.Catalog()) {
		t.Fatalf("expected %d entries, got %d", len(testsupport.Catalog()), len(entries))
	}
	if entries[0].ID != 9001 || entries[0].Name != "Red Vibe Deluxe II" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	err = st.SeedCatalog(ctx, catalog.Entry{ID: 1, Name: "Dup", Slug: "red-vibe-deluxe"})
	if err == nil {
		t.Fatal("expected duplicate slug to fail")
	}
	after, _ := st.ListCatalog(ctx)
	if len(after) != len(entries) {
		t.Fatal("failed seed must not leave partial rows")
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedContent(t, st, store.ContentItem{ID: 1, Title: "Kept", Body: "body"})
	st.Close()

	reopened, err := store.Open(context.Background(), cfg.Paths.ContentDB, store.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	item, err := reopened.GetContent(context.Background(), 1)
	if err != nil || item.Title != "Kept" {
		t.Fatalf("unexpected item after reopen: %+v, %v", item, err)
	}
}
