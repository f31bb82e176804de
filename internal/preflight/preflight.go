package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"relink/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. Directory
// checks for optional outputs only run when the feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	ledgerDir := filepath.Dir(cfg.Paths.LedgerFile)
	results = append(results, CheckDirectoryAccess("Ledger directory", ledgerDir))
	results = append(results, CheckLedgerLock(cfg.Paths.LedgerFile))
	results = append(results, CheckContentDB(ctx, cfg.Paths.ContentDB))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Ledger.BackupOnReview {
		results = append(results, CheckDirectoryAccess("Backup directory", cfg.Paths.BackupDir))
	}

	return results
}

// Err folds failed results into one error, or returns nil when every check
// passed. Mutating commands call it before touching the ledger.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
