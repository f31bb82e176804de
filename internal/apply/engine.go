package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"relink/internal/catalog"
	"relink/internal/ledger"
	"relink/internal/logging"
	"relink/internal/shortcode"
	"relink/internal/store"
)

// ErrEmptyCorpus indicates the content store holds no items at all.
var ErrEmptyCorpus = errors.New("content corpus is empty")

// Content is the content store as seen by apply.
type Content interface {
	ListContent(ctx context.Context, marker string) ([]store.ContentItem, error)
	UpdateBody(ctx context.Context, id int64, body string) error
}

// Records is the ledger as seen by apply.
type Records interface {
	Records() []ledger.Record
}

// Failure is one content item that could not be written.
type Failure struct {
	ContentID int64  `json:"content_id"`
	Title     string `json:"title"`
	Error     string `json:"error"`
}

// Result reports one apply pass. In a dry run Written stays zero and Changed
// counts the items that would be written.
type Result struct {
	DryRun              bool             `json:"dry_run"`
	Mappings            int              `json:"mappings"`
	PathRules           int              `json:"path_rules"`
	Scanned             int              `json:"scanned"`
	Changed             int              `json:"changed"`
	DirectivesRewritten int              `json:"directives_rewritten"`
	URLsRewritten       int              `json:"urls_rewritten"`
	Written             int              `json:"written"`
	Failed              int              `json:"failed"`
	Failures            []Failure        `json:"failures,omitempty"`
	Unresolved          []Anomaly        `json:"unresolved,omitempty"`
	TargetConflicts     []TargetConflict `json:"target_conflicts,omitempty"`
	PathConflicts       []PathConflict   `json:"path_conflicts,omitempty"`
	Duration            time.Duration    `json:"duration"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "apply")
	}
}

// WithWorkers bounds the number of bodies rewritten concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Engine rewrites the corpus from the ledger's terminal decisions.
type Engine struct {
	grammar *shortcode.Grammar
	index   *catalog.Index
	logger  *slog.Logger
	workers int
}

// New returns an Engine.
func New(grammar *shortcode.Grammar, idx *catalog.Index, opts ...Option) *Engine {
	e := &Engine{
		grammar: grammar,
		index:   idx,
		logger:  logging.NewComponentLogger(nil, "apply"),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type rewrite struct {
	item       store.ContentItem
	body       string
	directives int
	urls       int
}

// Run plans the rewrite from l, applies it to every content item, and writes
// back the items whose body changed. Write failures are counted per item and
// do not stop the pass. Running again with an unchanged ledger writes nothing.
func (e *Engine) Run(ctx context.Context, l Records, content Content, dryRun bool) (Result, error) {
	started := time.Now()
	plan := BuildPlan(l.Records(), e.index, e.grammar)
	result := Result{
		DryRun:          dryRun,
		Mappings:        len(plan.Directives),
		PathRules:       len(plan.Rules),
		Unresolved:      plan.Unresolved,
		TargetConflicts: plan.TargetConflicts,
		PathConflicts:   plan.PathConflicts,
	}
	e.reportPlan(plan)

	items, err := content.ListContent(ctx, "")
	if err != nil {
		return result, fmt.Errorf("list content: %w", err)
	}
	if len(items) == 0 {
		return result, ErrEmptyCorpus
	}
	result.Scanned = len(items)
	e.logger.Info("apply started",
		logging.String(logging.FieldEventType, "apply_started"),
		logging.Int("items", len(items)),
		logging.Int("mappings", result.Mappings),
		logging.Int("path_rules", result.PathRules),
		logging.Bool("dry_run", dryRun))

	rewrites, err := e.rewriteAll(ctx, items, plan)
	if err != nil {
		return result, err
	}

	progress := logging.NewProgress(e.logger, "apply", len(rewrites))
	for i, rw := range rewrites {
		result.Changed++
		result.DirectivesRewritten += rw.directives
		result.URLsRewritten += rw.urls
		if !dryRun {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := content.UpdateBody(ctx, rw.item.ID, rw.body); err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{ContentID: rw.item.ID, Title: rw.item.Title, Error: err.Error()})
				logging.WarnWithContext(e.logger, "content write failed", "apply_write_failed",
					logging.Int64(logging.FieldContentID, rw.item.ID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "rerun apply; the ledger is unchanged"),
					logging.String(logging.FieldImpact, "item keeps its legacy references"))
			} else {
				result.Written++
				e.logger.Debug("content rewritten",
					logging.Int64(logging.FieldContentID, rw.item.ID),
					logging.Int("directives", rw.directives),
					logging.Int("urls", rw.urls))
			}
		}
		progress.Observe(i + 1)
	}
	result.Duration = time.Since(started)

	e.logger.Info("apply complete",
		logging.String(logging.FieldEventType, "apply_complete"),
		logging.Bool("dry_run", dryRun),
		logging.Int("scanned", result.Scanned),
		logging.Int("changed", result.Changed),
		logging.Int("directives_rewritten", result.DirectivesRewritten),
		logging.Int("urls_rewritten", result.URLsRewritten),
		logging.Int("written", result.Written),
		logging.Int("failed", result.Failed),
		logging.Int("unresolved", len(result.Unresolved)),
		logging.Duration("duration", result.Duration))
	return result, nil
}

// rewriteAll computes new bodies in parallel and returns the changed items in
// content id order.
func (e *Engine) rewriteAll(ctx context.Context, items []store.ContentItem, plan Plan) ([]rewrite, error) {
	slots := make([]*rewrite, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if rw, changed := rewriteBody(e.grammar, plan, item); changed {
				slots[i] = &rw
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rewrite content: %w", err)
	}
	out := make([]rewrite, 0, len(items))
	for _, rw := range slots {
		if rw != nil {
			out = append(out, *rw)
		}
	}
	return out, nil
}

func rewriteBody(grammar *shortcode.Grammar, plan Plan, item store.ContentItem) (rewrite, bool) {
	body, directives := grammar.RewriteDirectives(item.Body, plan.Directives)
	urls := 0
	for _, rule := range plan.Rules {
		var n int
		body, n = rule.Apply(body)
		urls += n
	}
	if body == item.Body {
		return rewrite{}, false
	}
	return rewrite{item: item, body: body, directives: directives, urls: urls}, true
}

func (e *Engine) reportPlan(plan Plan) {
	for _, a := range plan.Unresolved {
		logging.WarnWithContext(e.logger, "legacy id left unresolved", "apply_unresolved",
			logging.String(logging.FieldLegacyID, a.LegacyID),
			logging.Any("chain", a.Chain),
			logging.String("reason", a.Reason),
			logging.String(logging.FieldErrorHint, "resolve the pending target or correct the ledger by hand"),
			logging.String(logging.FieldImpact, "occurrences keep the legacy id"))
	}
	for _, c := range plan.TargetConflicts {
		logging.WarnWithContext(e.logger, "legacy id resolved to several targets", "apply_target_conflict",
			logging.String(logging.FieldLegacyID, c.LegacyID),
			logging.Any("targets", c.Targets),
			logging.Int64(logging.FieldTargetID, c.Chosen),
			logging.String(logging.FieldImpact, "the most recent decision is applied everywhere"))
	}
	for _, c := range plan.PathConflicts {
		logging.WarnWithContext(e.logger, "link path maps to several targets", "apply_path_conflict",
			logging.String("path", c.Path),
			logging.Any("candidates", c.Candidates),
			logging.String(logging.FieldImpact, "link left unchanged"))
	}
}
