package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"relink/internal/ledger"
	"relink/internal/logging"
	"relink/internal/match"
	"relink/internal/shortcode"
	"relink/internal/signals"
	"relink/internal/store"
)

// ContentSource is the read side of the content store.
type ContentSource interface {
	ListContent(ctx context.Context, marker string) ([]store.ContentItem, error)
}

// Result summarizes one scan. Confident counts new pending records whose top
// suggestion already clears the auto-approve threshold, so review resolves
// them without prompting. Propagated counts earlier pending records settled
// through a pattern-memory hit of this scan.
type Result struct {
	Items        int           `json:"items"`
	Occurrences  int           `json:"occurrences"`
	Known        int           `json:"known"`
	Current      int           `json:"current"`
	Discovered   int           `json:"discovered"`
	AutoResolved int           `json:"auto_resolved"`
	AutoRejected int           `json:"auto_rejected"`
	Pending      int           `json:"pending"`
	Confident    int           `json:"confident"`
	Propagated   int           `json:"propagated"`
	Duration     time.Duration `json:"duration"`
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logging.NewComponentLogger(logger, "scan")
	}
}

// WithWorkers bounds the number of items processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMarker restricts the corpus read to bodies containing marker.
func WithMarker(marker string) Option {
	return func(s *Scanner) {
		s.marker = marker
	}
}

// Scanner merges directive occurrences into a ledger.
type Scanner struct {
	grammar   *shortcode.Grammar
	extractor *signals.Extractor
	engine    *match.Engine
	logger    *slog.Logger
	workers   int
	marker    string
}

// New returns a Scanner.
func New(grammar *shortcode.Grammar, extractor *signals.Extractor, engine *match.Engine, opts ...Option) *Scanner {
	s := &Scanner{
		grammar:   grammar,
		extractor: extractor,
		engine:    engine,
		logger:    logging.NewComponentLogger(nil, "scan"),
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type candidate struct {
	occ Occurrence
	top int
}

// Run reads the corpus, merges every new occurrence into l and persists l
// once. Re-running over an unchanged corpus inserts nothing.
func (s *Scanner) Run(ctx context.Context, src ContentSource, l *ledger.Ledger) (Result, error) {
	started := time.Now()
	items, err := src.ListContent(ctx, s.marker)
	if err != nil {
		return Result{}, fmt.Errorf("list content: %w", err)
	}
	s.logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Int("items", len(items)),
		logging.Int("workers", s.workers))

	found, err := s.collect(ctx, items, l)
	if err != nil {
		return Result{}, err
	}

	m := newMerger(l, s.engine.Policy().AutoApproveThreshold)
	result := Result{Items: len(items)}
	progress := logging.NewProgress(s.logger, "scan", len(items))
	for i, batch := range found {
		for _, c := range batch {
			if err := m.merge(c, &result); err != nil {
				return result, err
			}
		}
		progress.Observe(i + 1)
	}

	if l.Dirty() {
		if err := l.Persist(); err != nil {
			return result, fmt.Errorf("persist ledger: %w", err)
		}
	}
	result.Duration = time.Since(started)

	s.logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("items", result.Items),
		logging.Int("occurrences", result.Occurrences),
		logging.Int("discovered", result.Discovered),
		logging.Int("auto_resolved", result.AutoResolved),
		logging.Int("auto_rejected", result.AutoRejected),
		logging.Int("pending", result.Pending),
		logging.Int("confident", result.Confident),
		logging.Int("propagated", result.Propagated),
		logging.Int("known", result.Known),
		logging.Int("current", result.Current),
		logging.Duration("duration", result.Duration))
	return result, nil
}

// collect extracts and ranks occurrences in parallel. Each worker writes only
// its own slot of the result slice, and only reads from the ledger.
func (s *Scanner) collect(ctx context.Context, items []store.ContentItem, l *ledger.Ledger) ([][]candidate, error) {
	found := make([][]candidate, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			occs := Collect(s.grammar, s.extractor, item)
			batch := make([]candidate, 0, len(occs))
			for _, occ := range occs {
				c := candidate{occ: occ}
				if needsRanking(l, occ) {
					if suggestions := s.engine.Rank(occ.Signals); len(suggestions) > 0 {
						c.top = suggestions[0].Confidence
					}
				}
				batch = append(batch, c)
			}
			found[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	return found, nil
}

// needsRanking is false for occurrences that pattern memory settles without
// the match engine.
func needsRanking(l *ledger.Ledger, occ Occurrence) bool {
	if _, tracked := l.FindByKey(ledger.Key{ContentID: occ.ContentID, LegacyID: occ.LegacyID}); tracked {
		return false
	}
	if l.IsDiscontinued(occ.LegacyID) {
		return false
	}
	if _, ok := l.SlugDecision(occ.Signals.NearbySlug); ok && occ.Signals.NearbySlug != "" {
		return false
	}
	return true
}

// merger owns every ledger write of a scan.
type merger struct {
	l         *ledger.Ledger
	threshold int
	legacy    map[string]struct{}
	targets   map[int64]struct{}
}

func newMerger(l *ledger.Ledger, threshold int) *merger {
	m := &merger{
		l:         l,
		threshold: threshold,
		legacy:    make(map[string]struct{}),
		targets:   make(map[int64]struct{}),
	}
	for _, rec := range l.Records() {
		m.legacy[rec.LegacyID] = struct{}{}
		if target, ok := rec.Target(); ok {
			m.targets[target] = struct{}{}
		}
	}
	return m
}

// isCurrentReference reports whether legacyID is really a current catalog id
// written by an earlier apply: it is some record's target and was never seen
// as a legacy id.
func (m *merger) isCurrentReference(legacyID string) bool {
	if _, tracked := m.legacy[legacyID]; tracked {
		return false
	}
	id, err := strconv.ParseInt(legacyID, 10, 64)
	if err != nil {
		return false
	}
	_, ok := m.targets[id]
	return ok
}

func (m *merger) merge(c candidate, result *Result) error {
	occ := c.occ
	result.Occurrences++

	if _, tracked := m.l.FindByKey(ledger.Key{ContentID: occ.ContentID, LegacyID: occ.LegacyID}); tracked {
		result.Known++
		return nil
	}
	if m.isCurrentReference(occ.LegacyID) {
		result.Current++
		return nil
	}

	rec := ledger.Record{
		ContentID: occ.ContentID,
		LegacyID:  occ.LegacyID,
		Title:     occ.Title,
		RawToken:  occ.RawToken,
		Signals:   occ.Signals,
		State:     ledger.StatePending,
	}
	m.resolveFromMemory(&rec)

	inserted, err := m.l.UpsertIfAbsent(rec)
	if err != nil {
		return fmt.Errorf("record occurrence %s: %w", rec.Key(), err)
	}
	if !inserted {
		result.Known++
		return nil
	}
	m.legacy[rec.LegacyID] = struct{}{}
	result.Discovered++

	switch rec.State {
	case ledger.StatePending:
		result.Pending++
		if c.top >= m.threshold {
			result.Confident++
		}
	case ledger.StateRejected:
		result.AutoRejected++
	default:
		result.AutoResolved++
		target, _ := rec.Target()
		m.targets[target] = struct{}{}
		n, err := m.l.PropagateByLegacyID(rec.LegacyID, target)
		if err != nil {
			return fmt.Errorf("propagate %s: %w", rec.LegacyID, err)
		}
		result.Propagated += n
	}
	return nil
}

// resolveFromMemory settles rec from pattern memory. Discontinued ids are
// checked first; a legacy id already resolved elsewhere outranks a slug
// decision.
func (m *merger) resolveFromMemory(rec *ledger.Record) {
	if m.l.IsDiscontinued(rec.LegacyID) {
		rec.State = ledger.StateRejected
		rec.Discontinued = true
		rec.Source = ledger.SourceDiscontinued
		rec.Note = "legacy id marked discontinued"
		return
	}
	if target, ok := m.l.ResolvedTarget(rec.LegacyID); ok {
		rec.State = ledger.StateApproved
		rec.TargetID = &target
		rec.Source = ledger.SourceLegacyID
		return
	}
	slug := rec.Signals.NearbySlug
	if slug == "" {
		return
	}
	if target, ok := m.l.SlugDecision(slug); ok {
		rec.State = ledger.StateApproved
		rec.TargetID = &target
		rec.Source = ledger.SourceSlug
		return
	}
	if m.l.IsRejectedSlug(slug) {
		rec.State = ledger.StateRejected
		rec.Source = ledger.SourceSlug
		rec.Note = "nearby slug previously rejected"
	}
}
