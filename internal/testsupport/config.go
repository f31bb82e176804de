package testsupport

import (
	"path/filepath"
	"testing"

	"relink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LedgerFile = filepath.Join(base, "state", "ledger.json")
	cfgVal.Paths.ContentDB = filepath.Join(base, "content.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Matching.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithWorkers overrides the scan and apply worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.Workers = n
	}
}

// WithThreshold overrides the auto-approve confidence threshold.
func WithThreshold(threshold int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.AutoApproveThreshold = threshold
	}
}

// WithoutBackups disables ledger backups before review and apply.
func WithoutBackups() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.BackupOnReview = false
	}
}

// WithSlugPrefixes sets the distributor slug prefixes.
func WithSlugPrefixes(prefixes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.SlugPrefixes = prefixes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ContentDB)
}
