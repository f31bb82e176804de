package review

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"relink/internal/ledger"
	"relink/internal/logging"
	"relink/internal/match"
)

// Summary counts what one review session did.
type Summary struct {
	Pending      int  `json:"pending"`
	AutoApproved int  `json:"auto_approved"`
	Approved     int  `json:"approved"`
	Manual       int  `json:"manual"`
	Rejected     int  `json:"rejected"`
	Discontinued int  `json:"discontinued"`
	Deferred     int  `json:"deferred"`
	Propagated   int  `json:"propagated"`
	Settled      int  `json:"settled"`
	Remaining    int  `json:"remaining"`
	Quit         bool `json:"quit"`
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logging.NewComponentLogger(logger, "review")
	}
}

// AutoOnly limits the session to auto-approval; the prompter is never called.
func AutoOnly() Option {
	return func(w *Workflow) {
		w.autoOnly = true
	}
}

// Workflow resolves pending ledger records.
type Workflow struct {
	ledger   *ledger.Ledger
	engine   *match.Engine
	logger   *slog.Logger
	autoOnly bool
}

// New returns a Workflow over l ranking against engine.
func New(l *ledger.Ledger, engine *match.Engine, opts ...Option) *Workflow {
	w := &Workflow{
		ledger: l,
		engine: engine,
		logger: logging.NewComponentLogger(nil, "review"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type candidate struct {
	rec         ledger.Record
	suggestions []match.Suggestion
}

func (c candidate) top() int {
	if len(c.suggestions) == 0 {
		return 0
	}
	return c.suggestions[0].Confidence
}

// Run reviews every pending record. Suggestions are recomputed against the
// live catalog; records clearing the auto-approve threshold are approved
// first, then the rest are prompted best-first. A nil prompter behaves like
// AutoOnly.
func (w *Workflow) Run(ctx context.Context, prompter Prompter) (Summary, error) {
	pending := w.ledger.Pending()
	summary := Summary{Pending: len(pending)}
	queue := w.rank(pending)

	w.logger.Info("review started",
		logging.String(logging.FieldEventType, "review_started"),
		logging.Int("pending", len(pending)),
		logging.Bool("auto_only", w.autoOnly || prompter == nil))

	var manual []candidate
	for _, c := range queue {
		if err := ctx.Err(); err != nil {
			return w.finish(summary), err
		}
		if !w.engine.AutoApprovable(c.suggestions) {
			manual = append(manual, c)
			continue
		}
		top := c.suggestions[0]
		decided, err := w.decide(c.rec, ledger.Decision{
			State:    ledger.StateApproved,
			TargetID: top.Entry.ID,
			Source:   ledger.SourceAuto,
		}, top.Method, &summary)
		if err != nil {
			return w.finish(summary), err
		}
		if decided {
			summary.AutoApproved++
		} else {
			summary.Settled++
		}
	}

	if w.autoOnly || prompter == nil {
		return w.finish(summary), nil
	}

	for i, c := range manual {
		if err := ctx.Err(); err != nil {
			return w.finish(summary), err
		}
		current, ok := w.ledger.FindByKey(c.rec.Key())
		if !ok || current.State != ledger.StatePending {
			summary.Settled++
			continue
		}
		c.rec = current
		quit, err := w.resolve(ctx, prompter, c, i+1, len(manual), &summary)
		if err != nil {
			return w.finish(summary), err
		}
		if quit {
			summary.Quit = true
			break
		}
	}
	return w.finish(summary), nil
}

// rank computes suggestions for every record and orders them by top
// confidence, highest first. Ties keep discovery order.
func (w *Workflow) rank(records []ledger.Record) []candidate {
	out := make([]candidate, 0, len(records))
	for _, rec := range records {
		out = append(out, candidate{rec: rec, suggestions: w.engine.Rank(rec.Signals)})
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		return cmp.Compare(b.top(), a.top())
	})
	return out
}

// resolve prompts until the operator settles, defers, or quits.
func (w *Workflow) resolve(ctx context.Context, prompter Prompter, c candidate, position, total int, summary *Summary) (bool, error) {
	key := c.rec.Key()
	p := Prompt{
		Record:      c.rec,
		Suggestions: c.suggestions,
		Position:    position,
		Total:       total,
	}
	for {
		action, err := prompter.Prompt(ctx, p)
		if err != nil {
			return false, fmt.Errorf("prompt %s: %w", key, err)
		}
		p.Notice = ""

		var decision ledger.Decision
		method := action.Kind.String()
		switch action.Kind {
		case ActionQuit:
			return true, nil
		case ActionDefer:
			summary.Deferred++
			w.logger.Debug("record deferred", logging.String("key", key.String()))
			return false, nil
		case ActionSearch:
			p.Query = action.Query
			p.Suggestions = w.engine.SuggestFromFreeText(action.Query)
			if len(p.Suggestions) == 0 {
				p.Notice = fmt.Sprintf("no catalog entry matches %q", action.Query)
			}
			continue
		case ActionPick:
			if action.Choice < 1 || action.Choice > len(p.Suggestions) {
				p.Notice = fmt.Sprintf("no suggestion %d", action.Choice)
				continue
			}
			picked := p.Suggestions[action.Choice-1]
			decision = ledger.Decision{State: ledger.StateApproved, TargetID: picked.Entry.ID}
			method = picked.Method
			if p.Query != "" {
				decision.State = ledger.StateManual
				method = "search:" + picked.Method
			}
		case ActionTarget:
			if reason := w.invalidTarget(c.rec, action.TargetID); reason != "" {
				p.Notice = reason
				continue
			}
			decision = ledger.Decision{State: ledger.StateManual, TargetID: action.TargetID}
		case ActionReject:
			decision = ledger.Decision{State: ledger.StateRejected, Note: action.Note}
		case ActionDiscontinue:
			return false, w.discontinue(c.rec, action.Note, summary)
		default:
			p.Notice = fmt.Sprintf("unsupported action %s", action.Kind)
			continue
		}

		decision.Source = ledger.SourceOperator
		decided, err := w.decide(c.rec, decision, method, summary)
		if err != nil {
			return false, err
		}
		if !decided {
			summary.Settled++
			return false, nil
		}
		switch decision.State {
		case ledger.StateApproved:
			summary.Approved++
		case ledger.StateManual:
			summary.Manual++
		case ledger.StateRejected:
			summary.Rejected++
		}
		return false, nil
	}
}

// invalidTarget explains why id cannot be a target for rec, or returns "".
// A target is either a current catalog entry or a legacy id the ledger
// already tracks, which apply resolves as a chain.
func (w *Workflow) invalidTarget(rec ledger.Record, id int64) string {
	if _, ok := w.engine.Index().ByID(id); ok {
		return ""
	}
	legacy := strconv.FormatInt(id, 10)
	if legacy == rec.LegacyID {
		return fmt.Sprintf("%d is the record's own legacy id", id)
	}
	if w.ledger.Tracks(legacy) {
		return ""
	}
	return fmt.Sprintf("%d is neither a catalog id nor a tracked legacy id", id)
}

// decide records d for rec, propagates resolved decisions by legacy id and
// nearby slug, and persists. It reports false when rec was no longer pending.
func (w *Workflow) decide(rec ledger.Record, d ledger.Decision, method string, summary *Summary) (bool, error) {
	key := rec.Key()
	decided, err := w.ledger.RecordDecision(key, d)
	if err != nil {
		return false, fmt.Errorf("record decision %s: %w", key, err)
	}
	if !decided {
		return false, nil
	}

	if d.State.Resolved() {
		n, err := w.ledger.PropagateByLegacyID(rec.LegacyID, d.TargetID)
		if err != nil {
			return true, fmt.Errorf("propagate %s: %w", rec.LegacyID, err)
		}
		summary.Propagated += n
		if slug := rec.Signals.NearbySlug; slug != "" {
			n, err := w.ledger.PropagateBySlug(slug, d.TargetID)
			if err != nil {
				return true, fmt.Errorf("propagate slug %s: %w", slug, err)
			}
			summary.Propagated += n
		}
	}
	if err := w.ledger.Persist(); err != nil {
		return true, fmt.Errorf("persist ledger: %w", err)
	}

	attrs := logging.DecisionAttrs("review", string(d.State), method)
	attrs = append(attrs, logging.OccurrenceAttrs(rec.ContentID, rec.LegacyID)...)
	attrs = append(attrs, logging.String("source", string(d.Source)))
	if d.State.Resolved() {
		attrs = append(attrs, logging.Int64(logging.FieldTargetID, d.TargetID))
	}
	w.logger.Info("decision recorded", logging.Args(attrs...)...)
	return true, nil
}

func (w *Workflow) discontinue(rec ledger.Record, note string, summary *Summary) error {
	n, err := w.ledger.MarkDiscontinued(rec.LegacyID, rec.Signals, note)
	if err != nil {
		return fmt.Errorf("mark %s discontinued: %w", rec.LegacyID, err)
	}
	if err := w.ledger.Persist(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	summary.Discontinued += n
	w.logger.Info("decision recorded", logging.Args(append(
		logging.DecisionAttrs("review", string(ledger.StateRejected), "discontinued"),
		logging.String(logging.FieldLegacyID, rec.LegacyID),
		logging.Int("rejected", n))...)...)
	return nil
}

func (w *Workflow) finish(summary Summary) Summary {
	summary.Remaining = len(w.ledger.Pending())
	w.logger.Info("review complete",
		logging.String(logging.FieldEventType, "review_complete"),
		logging.Int("auto_approved", summary.AutoApproved),
		logging.Int("approved", summary.Approved),
		logging.Int("manual", summary.Manual),
		logging.Int("rejected", summary.Rejected),
		logging.Int("discontinued", summary.Discontinued),
		logging.Int("deferred", summary.Deferred),
		logging.Int("propagated", summary.Propagated),
		logging.Int("remaining", summary.Remaining),
		logging.Bool("quit", summary.Quit))
	return summary
}
