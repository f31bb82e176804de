package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"relink/internal/logging"
)

// PruneBackups removes backups of this ledger in dir that are older than
// retentionDays, never touching the newest one. A retentionDays value of 0
// disables pruning. It returns the number of files removed.
func (l *Ledger) PruneBackups(dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(l.path)
	}
	pattern := filepath.Join(dir, filepath.Base(l.path)+".*.bak")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	if len(matches) < 2 {
		return 0, nil
	}

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	type backup struct {
		path string
		old  bool
	}
	var (
		backups []backup
		newest  string
		newestT int64
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		mod := info.ModTime()
		backups = append(backups, backup{path: path, old: mod.Before(cutoff)})
		if newest == "" || mod.UnixNano() > newestT {
			newest, newestT = path, mod.UnixNano()
		}
	}

	removed := 0
	for _, b := range backups {
		if !b.old || b.path == newest {
			continue
		}
		if err := os.Remove(b.path); err != nil {
			logging.WarnWithContext(l.logger, "backup retention remove failed; file remains", "ledger_backup_retention_failed",
				logging.String("path", b.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions and backup_dir ownership"),
				logging.String(logging.FieldImpact, "old backup remains on disk"))
			continue
		}
		removed++
	}
	if removed > 0 {
		l.logger.Info("old ledger backups pruned",
			logging.String(logging.FieldEventType, "ledger_backup_pruned"),
			logging.Int("removed", removed),
			logging.Int("retention_days", retentionDays))
	}
	return removed, nil
}
