package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"relink/internal/catalog"
	"relink/internal/config"
	"relink/internal/ledger"
	"relink/internal/logging"
	"relink/internal/match"
	"relink/internal/preflight"
	"relink/internal/shortcode"
	"relink/internal/signals"
	"relink/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger builds the run logger. Console output goes to the command's
// stderr so stdout stays reserved for command output.
func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	var override string
	if c.logLevelFlag != nil {
		override = *c.logLevelFlag
	}
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr(), override)
}

// toolkit bundles the read-only matching components built from one catalog
// snapshot.
type toolkit struct {
	grammar   *shortcode.Grammar
	index     *catalog.Index
	engine    *match.Engine
	extractor *signals.Extractor
}

func buildToolkit(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*toolkit, error) {
	grammar, err := shortcode.NewGrammar(cfg.Shortcodes.Kinds, cfg.Shortcodes.LinkPrefixes, cfg.Shortcodes.CanonicalLinkPrefix)
	if err != nil {
		return nil, fmt.Errorf("build shortcode grammar: %w", err)
	}
	entries, err := st.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	idx, stats, err := catalog.Load(entries, catalog.Options{SlugPrefixes: cfg.Catalog.SlugPrefixes})
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyCatalog) {
			return nil, fmt.Errorf("load catalog from %s: %w (import one with 'relink store import --catalog')", st.Path(), err)
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if stats.Skipped > 0 {
		logging.WarnWithContext(logger, "malformed catalog entries skipped", "catalog_entries_skipped",
			logging.Int("skipped", stats.Skipped),
			logging.String(logging.FieldErrorHint, "fix entries with a missing id or slug, or duplicate ids or slugs"),
			logging.String(logging.FieldImpact, "skipped entries cannot be suggested"))
	}
	logger.Info("catalog loaded",
		logging.String(logging.FieldEventType, "catalog_loaded"),
		logging.Int("entries", stats.Loaded),
		logging.Int("secondary_keys", stats.SecondaryKeys),
		logging.Int("collisions", stats.Collisions))

	policy := match.DefaultPolicy()
	policy.AutoApproveThreshold = cfg.Matching.AutoApproveThreshold
	policy.MinSignalLength = cfg.Matching.MinSignalLength
	return &toolkit{
		grammar:   grammar,
		index:     idx,
		engine:    match.NewEngine(idx, policy),
		extractor: signals.NewExtractor(grammar, cfg.Matching.Lookbehind, cfg.Matching.Lookahead),
	}, nil
}

type sessionOptions struct {
	// mutating runs preflight before anything is opened for writing.
	mutating bool
	// readOnlyLedger opens the ledger without taking its lock.
	readOnlyLedger bool
	// backup copies the ledger snapshot before work starts.
	backup bool
	// tools builds the catalog index and match engine.
	tools bool
}

// session is everything one command run needs. close releases the store and
// the ledger lock.
type session struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	ledger *ledger.Ledger
	tools  *toolkit
	stop   context.CancelFunc
}

func (c *commandContext) openSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = logging.WithRunID(ctx, uuid.NewString())
	logger = logging.WithContext(ctx, logger).With(logging.String("command", cmd.Name()))
	s := &session{ctx: ctx, cfg: cfg, logger: logger, stop: stop}

	if opts.mutating {
		results := preflight.RunAll(ctx, cfg)
		for _, r := range results {
			logger.Debug("preflight check", logging.String("check", r.Name), logging.Bool("passed", r.Passed), logging.String("detail", r.Detail))
		}
		if err := preflight.Err(results); err != nil {
			s.close()
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg.Paths.ContentDB, store.Options{})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open content store: %w", err)
	}
	s.store = st

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if opts.readOnlyLedger {
		ledgerOpts = append(ledgerOpts, ledger.ReadOnly())
	}
	l, err := ledger.Open(cfg.Paths.LedgerFile, ledgerOpts...)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s.ledger = l

	if opts.backup && cfg.Ledger.BackupOnReview {
		if _, err := l.Backup(cfg.Paths.BackupDir); err != nil {
			s.close()
			return nil, err
		}
		if _, err := l.PruneBackups(cfg.Paths.BackupDir, cfg.Ledger.BackupRetentionDays); err != nil {
			logging.WarnWithContext(logger, "ledger backup pruning failed", "ledger_backup_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check backup_dir permissions"),
				logging.String(logging.FieldImpact, "old backups remain on disk"))
		}
	}

	if opts.tools {
		tools, err := buildToolkit(ctx, cfg, st, logger)
		if err != nil {
			s.close()
			return nil, err
		}
		s.tools = tools
	}
	return s, nil
}

func (s *session) close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn("ledger close failed", logging.Error(err))
		}
		s.ledger = nil
	}
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
	if s.stop != nil {
		s.stop()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
