package main

import (
	"path/filepath"
	"testing"

	"relink/internal/testsupport"
)

func TestStoreInitAndImport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "relink.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"store", "init"}, configPath)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	requireContains(t, out, "Content database ready")

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	contentPath := filepath.Join(dir, "content.json")
	testsupport.WriteFile(t, catalogPath, `[
  {"id": 9001, "name": "Red Vibe Deluxe", "slug": "red-vibe-deluxe"},
  {"id": 9004, "name": "Pocket Bullet Vibrator", "slug": "pocket-bullet-vibrator", "sku": "PB-1"}
]`)
	testsupport.WriteFile(t, contentPath, `[{"id": 1, "title": "Gift guide", "body": "[product id=\"500\"]"}]`)

	out, _, err = runCLI(t, []string{"store", "import", "--catalog", catalogPath, "--content", contentPath}, configPath)
	if err != nil {
		t.Fatalf("store import: %v", err)
	}
	requireContains(t, out, "Imported 2 catalog entries")
	requireContains(t, out, "Imported 1 content items")

	out, _, err = runCLI(t, []string{"status", "--json"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	report := decodeJSON[statusReport](t, out)
	if report.ContentItems != 1 || report.CatalogEntries != 2 || report.Ledger.Total != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, _, err := runCLI(t, []string{"store", "import"}, configPath); err == nil {
		t.Fatal("expected import without files to fail")
	}
}
