package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"relink/internal/catalog"
	"relink/internal/config"
	"relink/internal/ledger"
	"relink/internal/match"
	"relink/internal/review"
	"relink/internal/signals"
	"relink/internal/testsupport"
)

func newEngine(t *testing.T, threshold int) *match.Engine {
	t.Helper()
	idx, _, err := catalog.Load(testsupport.Catalog(), catalog.Options{SlugPrefixes: []string{"acme"}})
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	policy := match.DefaultPolicy()
	policy.AutoApproveThreshold = threshold
	return match.NewEngine(idx, policy)
}

func seed(t *testing.T, l *ledger.Ledger, contentID int64, legacyID string, sig signals.Signals) ledger.Key {
	t.Helper()
	rec := ledger.Record{
		ContentID: contentID,
		LegacyID:  legacyID,
		Title:     "Post",
		RawToken:  `[product id="` + legacyID + `"]`,
		Signals:   sig,
	}
	if _, err := l.UpsertIfAbsent(rec); err != nil {
		t.Fatalf("UpsertIfAbsent: %v", err)
	}
	return rec.Key()
}

func mustFind(t *testing.T, l *ledger.Ledger, key ledger.Key) ledger.Record {
	t.Helper()
	rec, ok := l.FindByKey(key)
	if !ok {
		t.Fatalf("record %s missing", key)
	}
	return rec
}

func assertTarget(t *testing.T, rec ledger.Record, state ledger.State, target int64) {
	t.Helper()
	got, ok := rec.Target()
	if rec.State != state || !ok || got != target {
		t.Fatalf("record %s: got state %s target %d, want %s %d", rec.Key(), rec.State, got, state, target)
	}
}

// script answers prompts in order and remembers what it was shown.
type script struct {
	actions []review.Action
	seen    []review.Prompt
}

func (s *script) Prompt(_ context.Context, p review.Prompt) (review.Action, error) {
	s.seen = append(s.seen, p)
	if len(s.actions) == 0 {
		return review.Action{Kind: review.ActionQuit}, nil
	}
	next := s.actions[0]
	s.actions = s.actions[1:]
	return next, nil
}

func setup(t *testing.T) (*config.Config, *ledger.Ledger) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return cfg, testsupport.MustOpenLedger(t, cfg)
}

func TestAutoApprovalPropagatesByLegacyID(t *testing.T) {
	_, l := setup(t)
	withSlug := seed(t, l, 1, "500", signals.Signals{NearbyPath: "/product/red-vibe/", NearbySlug: "red-vibe"})
	bare := seed(t, l, 2, "500", signals.Signals{})
	mystery := seed(t, l, 3, "700", signals.Signals{})

	summary, err := review.New(l, newEngine(t, 85), review.AutoOnly()).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := review.Summary{Pending: 3, AutoApproved: 1, Propagated: 1, Remaining: 1}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	auto := mustFind(t, l, withSlug)
	assertTarget(t, auto, ledger.StateApproved, 9001)
	if auto.Source != ledger.SourceAuto {
		t.Fatalf("source = %s, want auto", auto.Source)
	}
	assertTarget(t, mustFind(t, l, bare), ledger.StateApproved, 9001)
	if rec := mustFind(t, l, mystery); rec.State != ledger.StatePending {
		t.Fatalf("700 should stay pending, got %s", rec.State)
	}
	if target, ok := l.SlugDecision("red-vibe"); !ok || target != 9001 {
		t.Fatalf("slug memory = %d %v", target, ok)
	}
	if l.Dirty() {
		t.Fatal("decisions should be persisted")
	}
}

func TestSearchThenPickIsManual(t *testing.T) {
	_, l := setup(t)
	key := seed(t, l, 3, "700", signals.Signals{})

	prompter := &script{actions: []review.Action{
		{Kind: review.ActionSearch, Query: "pocket bullet"},
		{Kind: review.ActionPick, Choice: 1},
	}}
	summary, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Manual != 1 || summary.Remaining != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	assertTarget(t, mustFind(t, l, key), ledger.StateManual, 9004)

	if len(prompter.seen) != 2 {
		t.Fatalf("prompts = %d, want 2", len(prompter.seen))
	}
	if len(prompter.seen[0].Suggestions) != 0 {
		t.Fatalf("no-context record should have no suggestions, got %+v", prompter.seen[0].Suggestions)
	}
	if prompter.seen[1].Query != "pocket bullet" || len(prompter.seen[1].Suggestions) == 0 {
		t.Fatalf("second prompt should carry search results, got %+v", prompter.seen[1])
	}
}

func TestPickApprovesAndPropagatesBySlug(t *testing.T) {
	_, l := setup(t)
	first := seed(t, l, 1, "500", signals.Signals{NearbySlug: "red-vibe"})
	other := seed(t, l, 2, "501", signals.Signals{NearbySlug: "red-vibe"})

	// A threshold of 100 forces the 95% suggestion through the prompter.
	prompter := &script{actions: []review.Action{{Kind: review.ActionPick, Choice: 1}}}
	summary, err := review.New(l, newEngine(t, 100)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := review.Summary{Pending: 2, Approved: 1, Propagated: 1, Settled: 1}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	assertTarget(t, mustFind(t, l, first), ledger.StateApproved, 9001)
	propagated := mustFind(t, l, other)
	assertTarget(t, propagated, ledger.StateApproved, 9001)
	if propagated.Source != ledger.SourceSlug {
		t.Fatalf("source = %s, want slug", propagated.Source)
	}
}

func TestPromptsBestFirst(t *testing.T) {
	_, l := setup(t)
	seed(t, l, 1, "700", signals.Signals{})
	seed(t, l, 2, "500", signals.Signals{NearbySlug: "red-vibe"})

	prompter := &script{actions: []review.Action{{Kind: review.ActionDefer}, {Kind: review.ActionDefer}}}
	summary, err := review.New(l, newEngine(t, 100)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Deferred != 2 || summary.Remaining != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	var order []string
	for _, p := range prompter.seen {
		order = append(order, p.Record.LegacyID)
	}
	if diff := cmp.Diff([]string{"500", "700"}, order); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	if prompter.seen[0].Position != 1 || prompter.seen[0].Total != 2 {
		t.Fatalf("unexpected position %d/%d", prompter.seen[0].Position, prompter.seen[0].Total)
	}
}

func TestTargetValidation(t *testing.T) {
	_, l := setup(t)
	seed(t, l, 1, "640", signals.Signals{})
	key := seed(t, l, 2, "700", signals.Signals{})

	prompter := &script{actions: []review.Action{
		{Kind: review.ActionDefer},
		{Kind: review.ActionTarget, TargetID: 123456},
		{Kind: review.ActionTarget, TargetID: 700},
		{Kind: review.ActionPick, Choice: 2},
		{Kind: review.ActionTarget, TargetID: 640},
	}}
	if _, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 640 is tracked as a legacy id, so 700 may point at it; apply follows the chain.
	assertTarget(t, mustFind(t, l, key), ledger.StateManual, 640)

	var notices []string
	for _, p := range prompter.seen[1:] {
		notices = append(notices, p.Notice)
	}
	want := []string{
		"",
		"123456 is neither a catalog id nor a tracked legacy id",
		"700 is the record's own legacy id",
		"no suggestion 2",
	}
	if diff := cmp.Diff(want, notices); diff != "" {
		t.Fatalf("notices mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscontinueRejectsEveryOccurrence(t *testing.T) {
	_, l := setup(t)
	first := seed(t, l, 1, "700", signals.Signals{})
	second := seed(t, l, 2, "700", signals.Signals{HeadingText: "Gone forever"})

	prompter := &script{actions: []review.Action{{Kind: review.ActionDiscontinue, Note: "vendor closed"}}}
	summary, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Discontinued != 2 || summary.Settled != 1 || summary.Remaining != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, key := range []ledger.Key{first, second} {
		rec := mustFind(t, l, key)
		if rec.State != ledger.StateRejected || !rec.Discontinued || rec.Note != "vendor closed" {
			t.Fatalf("record %s: %+v", key, rec)
		}
	}
	if !l.IsDiscontinued("700") {
		t.Fatal("700 should be discontinued")
	}
}

func TestRejectRemembersSlug(t *testing.T) {
	_, l := setup(t)
	key := seed(t, l, 1, "820", signals.Signals{NearbySlug: "mystery-box"})

	prompter := &script{actions: []review.Action{{Kind: review.ActionReject, Note: "not a product"}}}
	summary, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Rejected != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := mustFind(t, l, key)
	if rec.State != ledger.StateRejected || rec.Discontinued || rec.Source != ledger.SourceOperator {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !l.IsRejectedSlug("mystery-box") {
		t.Fatal("slug should be remembered as rejected")
	}
}

func TestDecisionsPersistBeforeNextPrompt(t *testing.T) {
	cfg, l := setup(t)
	seed(t, l, 1, "700", signals.Signals{})
	seed(t, l, 2, "701", signals.Signals{})
	if err := l.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	var onDisk ledger.Stats
	prompter := review.PrompterFunc(func(_ context.Context, p review.Prompt) (review.Action, error) {
		if p.Record.LegacyID == "700" {
			return review.Action{Kind: review.ActionTarget, TargetID: 9003}, nil
		}
		snapshot, err := ledger.Open(cfg.Paths.LedgerFile, ledger.ReadOnly())
		if err != nil {
			return review.Action{}, err
		}
		defer snapshot.Close()
		onDisk = snapshot.Stats()
		return review.Action{Kind: review.ActionQuit}, nil
	})

	summary, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Quit || summary.Manual != 1 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if onDisk.Manual != 1 || onDisk.Pending != 1 {
		t.Fatalf("first decision not persisted before second prompt: %+v", onDisk)
	}
}

func TestPrompterErrorStopsSession(t *testing.T) {
	_, l := setup(t)
	seed(t, l, 1, "700", signals.Signals{})
	boom := errors.New("terminal gone")

	prompter := review.PrompterFunc(func(context.Context, review.Prompt) (review.Action, error) {
		return review.Action{}, boom
	})
	_, err := review.New(l, newEngine(t, 85)).Run(context.Background(), prompter)
	if !errors.Is(err, boom) {
		t.Fatalf("expected prompter error, got %v", err)
	}
}
