package apply

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"relink/internal/catalog"
	"relink/internal/ledger"
	"relink/internal/shortcode"
	"relink/internal/signals"
	"relink/internal/testsupport"
)

var reviewBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func resolved(contentID int64, legacyID string, target int64, path string, minute int) ledger.Record {
	reviewed := reviewBase.Add(time.Duration(minute) * time.Minute)
	sig := signals.Signals{}
	if path != "" {
		sig.NearbyPath = path
		sig.NearbySlug = path[len("/product/") : len(path)-1]
	}
	return ledger.Record{
		ContentID:  contentID,
		LegacyID:   legacyID,
		Title:      "Post",
		RawToken:   `[product id="` + legacyID + `"]`,
		Signals:    sig,
		State:      ledger.StateApproved,
		TargetID:   &target,
		Source:     ledger.SourceOperator,
		ReviewedAt: &reviewed,
	}
}

func pending(contentID int64, legacyID string) ledger.Record {
	return ledger.Record{ContentID: contentID, LegacyID: legacyID, State: ledger.StatePending}
}

func testGrammar(t *testing.T) *shortcode.Grammar {
	t.Helper()
	g, err := shortcode.NewGrammar([]string{"product", "add_to_cart"}, []string{"/product/"}, "/product/")
	if err != nil {
		t.Fatalf("NewGrammar: %v", err)
	}
	return g
}

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	idx, _, err := catalog.Load(testsupport.Catalog(), catalog.Options{})
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return idx
}

func TestBuildPlanFollowsChains(t *testing.T) {
	records := []ledger.Record{
		resolved(1, "300", 640, "", 1),
		resolved(2, "640", 9004, "/product/bullet/", 2),
		resolved(3, "500", 9001, "/product/red-vibe/", 3),
	}
	plan := BuildPlan(records, testIndex(t), testGrammar(t))

	want := map[string]int64{"300": 9004, "640": 9004, "500": 9001}
	if diff := cmp.Diff(want, plan.Directives); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Unresolved) != 0 {
		t.Fatalf("unexpected anomalies: %+v", plan.Unresolved)
	}

	var rules [][2]string
	for _, r := range plan.Rules {
		rules = append(rules, [2]string{r.Old, r.New})
	}
	wantRules := [][2]string{
		{"/product/red-vibe/", "/product/red-vibe-deluxe/"},
		{"/product/bullet/", "/product/pocket-bullet-vibrator/"},
	}
	if diff := cmp.Diff(wantRules, rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlanReportsCycles(t *testing.T) {
	records := []ledger.Record{
		resolved(1, "10", 20, "", 1),
		resolved(2, "20", 10, "", 2),
		resolved(3, "30", 10, "", 3),
		resolved(4, "40", 9002, "", 4),
	}
	plan := BuildPlan(records, testIndex(t), testGrammar(t))

	if diff := cmp.Diff(map[string]int64{"40": 9002}, plan.Directives); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
	want := []Anomaly{
		{LegacyID: "10", Chain: []string{"10", "20", "10"}, Reason: reasonCycle, Keys: []ledger.Key{{ContentID: 1, LegacyID: "10"}}},
		{LegacyID: "20", Chain: []string{"20", "10", "20"}, Reason: reasonCycle, Keys: []ledger.Key{{ContentID: 2, LegacyID: "20"}}},
		{LegacyID: "30", Chain: []string{"30", "10", "20", "10"}, Reason: reasonCycle, Keys: []ledger.Key{{ContentID: 3, LegacyID: "30"}}},
	}
	if diff := cmp.Diff(want, plan.Unresolved); diff != "" {
		t.Fatalf("anomalies mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlanHoldsChainsEndingAtPendingIDs(t *testing.T) {
	records := []ledger.Record{
		resolved(1, "300", 640, "", 1),
		pending(2, "640"),
	}
	plan := BuildPlan(records, testIndex(t), testGrammar(t))
	if len(plan.Directives) != 0 {
		t.Fatalf("expected no directives, got %v", plan.Directives)
	}
	if len(plan.Unresolved) != 1 || plan.Unresolved[0].Reason != reasonPending {
		t.Fatalf("expected one pending-chain anomaly, got %+v", plan.Unresolved)
	}
}

func TestBuildPlanCatalogTargetIsFinalWhenAlsoPending(t *testing.T) {
	// Content already linking the current product 9001 was scanned as a
	// pending occurrence before anything was approved.
	records := []ledger.Record{
		resolved(1, "500", 9001, "/product/red-vibe/", 1),
		pending(4, "9001"),
	}
	plan := BuildPlan(records, testIndex(t), testGrammar(t))

	if diff := cmp.Diff(map[string]int64{"500": 9001}, plan.Directives); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Unresolved) != 0 {
		t.Fatalf("unexpected anomalies: %+v", plan.Unresolved)
	}
	if len(plan.Rules) != 1 || plan.Rules[0].New != "/product/red-vibe-deluxe/" {
		t.Fatalf("expected the red-vibe rule, got %+v", plan.Rules)
	}
}

func TestBuildPlanSelfTargetIsTerminal(t *testing.T) {
	plan := BuildPlan([]ledger.Record{resolved(1, "9001", 9001, "", 1)}, testIndex(t), testGrammar(t))
	if diff := cmp.Diff(map[string]int64{"9001": 9001}, plan.Directives); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPlanConflicts(t *testing.T) {
	records := []ledger.Record{
		resolved(1, "500", 9001, "/product/red-vibe/", 5),
		resolved(2, "500", 9002, "", 1),
		resolved(3, "610", 9003, "/product/shared/", 2),
		resolved(4, "620", 9004, "/product/shared/", 3),
	}
	plan := BuildPlan(records, testIndex(t), testGrammar(t))

	if got := plan.Directives["500"]; got != 9001 {
		t.Fatalf("500 -> %d, want the latest decision 9001", got)
	}
	wantTargets := []TargetConflict{{LegacyID: "500", Targets: []int64{9001, 9002}, Chosen: 9001}}
	if diff := cmp.Diff(wantTargets, plan.TargetConflicts); diff != "" {
		t.Fatalf("target conflicts mismatch (-want +got):\n%s", diff)
	}
	wantPaths := []PathConflict{{
		Path:       "/product/shared/",
		Candidates: []string{"/product/pocket-bullet-vibrator/", "/product/the-velvet-rabbit-massager/"},
	}}
	if diff := cmp.Diff(wantPaths, plan.PathConflicts); diff != "" {
		t.Fatalf("path conflicts mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Rules) != 1 || plan.Rules[0].Old != "/product/red-vibe/" {
		t.Fatalf("expected only the red-vibe rule, got %+v", plan.Rules)
	}
}
