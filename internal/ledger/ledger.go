package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"relink/internal/fileutil"
	"relink/internal/logging"
)

// SchemaVersion is the snapshot layout version. Bump it when the layout
// changes incompatibly.
const SchemaVersion = 1

// snapshot is the on-disk document.
type snapshot struct {
	SchemaVersion int                          `json:"schema_version"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
	Records       []Record                     `json:"records"`
	SlugDecisions map[string]int64             `json:"slug_decisions"`
	RejectedSlugs []string                     `json:"rejected_slugs"`
	Discontinued  map[string]DiscontinuedEntry `json:"discontinued"`
}

// Option customizes Open.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// ReadOnly opens the ledger without taking the lock. Mutations and Persist
// fail with ErrReadOnly.
func ReadOnly() Option {
	return func(l *Ledger) { l.readOnly = true }
}

// Ledger is the in-memory view of the decision snapshot. Methods are safe for
// concurrent use, but callers are expected to mutate from a single goroutine.
type Ledger struct {
	path     string
	logger   *slog.Logger
	now      func() time.Time
	readOnly bool

	lock *flock.Flock

	mu        sync.Mutex
	createdAt time.Time
	updatedAt time.Time
	records   []*Record
	byKey     map[Key]*Record
	memory    *patternMemory
	dirty     bool
}

// Open loads the snapshot at path, creating an empty ledger when the file does
// not exist yet. A snapshot that cannot be parsed or validated is fatal.
func Open(path string, opts ...Option) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	l := &Ledger{
		path:  path,
		now:   func() time.Time { return time.Now().UTC() },
		byKey: make(map[Key]*Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "ledger")

	if !l.readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		l.lock = flock.New(path + ".lock")
		ok, err := l.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path+".lock")
		}
	}

	if err := l.load(); err != nil {
		l.unlock()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.createdAt = l.now()
		l.updatedAt = l.createdAt
		l.memory = newPatternMemory()
		l.logger.Debug("starting empty ledger", logging.String("path", l.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, l.path, err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d",
			ErrSchemaMismatch, l.path, snap.SchemaVersion, SchemaVersion)
	}

	records := make([]*Record, 0, len(snap.Records))
	byKey := make(map[Key]*Record, len(snap.Records))
	for i := range snap.Records {
		rec := snap.Records[i]
		if err := rec.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if _, dup := byKey[rec.Key()]; dup {
			return fmt.Errorf("%w: duplicate record %s", ErrCorrupt, rec.Key())
		}
		records = append(records, &rec)
		byKey[rec.Key()] = &rec
	}

	l.createdAt = snap.CreatedAt
	l.updatedAt = snap.UpdatedAt
	l.records = records
	l.byKey = byKey
	l.memory = rebuildMemory(records, snap.Discontinued)

	l.logger.Debug("loaded ledger",
		logging.String("path", l.path),
		logging.Int("record_count", len(records)),
		logging.Int("slug_decisions", len(l.memory.slugDecisions)),
		logging.Int("discontinued", len(l.memory.discontinued)))
	return nil
}

// Path returns the snapshot path.
func (l *Ledger) Path() string { return l.path }

// Dirty reports whether there are changes not yet persisted.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Persist writes the full snapshot atomically.
func (l *Ledger) Persist() error {
	if l.readOnly {
		return ErrReadOnly
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.updatedAt = l.now()
	snap := snapshot{
		SchemaVersion: SchemaVersion,
		CreatedAt:     l.createdAt,
		UpdatedAt:     l.updatedAt,
		Records:       make([]Record, 0, len(l.records)),
		SlugDecisions: l.memory.slugDecisionsCopy(),
		RejectedSlugs: l.memory.rejectedSlugList(),
		Discontinued:  l.memory.discontinuedCopy(),
	}
	for _, rec := range l.records {
		snap.Records = append(snap.Records, *rec)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.dirty = false
	return nil
}

// Backup copies the current snapshot into dir under a timestamped name and
// returns the backup path. It returns "" when no snapshot exists yet.
func (l *Ledger) Backup(dir string) (string, error) {
	exists, err := fileutil.Exists(l.path)
	if err != nil {
		return "", fmt.Errorf("stat ledger: %w", err)
	}
	if !exists {
		return "", nil
	}
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(l.path)
	}
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(l.path), l.now().Format("20060102T150405.000000000Z"))
	dst := filepath.Join(dir, name)
	if err := fileutil.CopyFileVerified(l.path, dst); err != nil {
		return "", fmt.Errorf("backup ledger: %w", err)
	}
	l.logger.Info("ledger backed up",
		logging.String(logging.FieldEventType, "ledger_backup"),
		logging.String("backup_path", dst))
	return dst, nil
}

// Close releases the ledger lock. It does not persist pending changes.
func (l *Ledger) Close() error {
	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()
	if dirty {
		logging.WarnWithContext(l.logger, "closing ledger with unpersisted changes", "ledger_unpersisted",
			logging.String(logging.FieldErrorHint, "call Persist before Close"),
			logging.String(logging.FieldImpact, "changes since the last persist are lost"))
	}
	return l.unlock()
}

func (l *Ledger) unlock() error {
	if l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	if err != nil {
		return fmt.Errorf("release ledger lock: %w", err)
	}
	return nil
}

func (l *Ledger) writable() error {
	if l.readOnly {
		return ErrReadOnly
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
