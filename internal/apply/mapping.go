package apply

import (
	"cmp"
	"slices"
	"strconv"

	"relink/internal/catalog"
	"relink/internal/ledger"
	"relink/internal/shortcode"
)

// Anomaly is a legacy id left out of the rewrite because its chain of targets
// does not end at a resolved id.
type Anomaly struct {
	LegacyID string       `json:"legacy_id"`
	Chain    []string     `json:"chain"`
	Reason   string       `json:"reason"`
	Keys     []ledger.Key `json:"keys"`
}

const (
	reasonCycle   = "cycle"
	reasonPending = "target legacy id not resolved"
)

// TargetConflict reports a legacy id that was resolved to different targets
// in different content items. The most recent decision is used.
type TargetConflict struct {
	LegacyID string  `json:"legacy_id"`
	Targets  []int64 `json:"targets"`
	Chosen   int64   `json:"chosen"`
}

// PathConflict reports a link path that would map to more than one canonical
// path. Conflicting paths are not rewritten.
type PathConflict struct {
	Path       string   `json:"path"`
	Candidates []string `json:"candidates"`
}

// Plan is the rewrite derived from the ledger's terminal state.
type Plan struct {
	Directives      map[string]int64
	Rules           []*shortcode.PathRule
	Unresolved      []Anomaly
	TargetConflicts []TargetConflict
	PathConflicts   []PathConflict
}

// BuildPlan turns resolved records into a directive mapping with every chain
// collapsed to its final target, plus the companion link rules.
func BuildPlan(records []ledger.Record, idx *catalog.Index, grammar *shortcode.Grammar) Plan {
	direct, conflicts := terminalMapping(records)
	tracked := make(map[string]struct{}, len(records))
	for _, rec := range records {
		tracked[rec.LegacyID] = struct{}{}
	}

	plan := Plan{Directives: make(map[string]int64, len(direct)), TargetConflicts: conflicts}
	for _, legacyID := range sortedKeys(direct) {
		final, chain, reason := follow(legacyID, direct, tracked, idx)
		if reason != "" {
			plan.Unresolved = append(plan.Unresolved, Anomaly{
				LegacyID: legacyID,
				Chain:    chain,
				Reason:   reason,
				Keys:     keysFor(records, legacyID),
			})
			continue
		}
		plan.Directives[legacyID] = final
	}
	plan.Rules, plan.PathConflicts = pathRules(records, plan.Directives, idx, grammar)
	return plan
}

// terminalMapping collects legacy id to target from approved and manual
// records. When one legacy id carries several targets the latest review wins.
func terminalMapping(records []ledger.Record) (map[string]int64, []TargetConflict) {
	type choice struct {
		target  int64
		at      int64
		targets []int64
	}
	choices := make(map[string]*choice)
	for _, rec := range records {
		target, ok := rec.Target()
		if !ok || !rec.State.Resolved() {
			continue
		}
		var at int64
		if rec.ReviewedAt != nil {
			at = rec.ReviewedAt.UnixNano()
		}
		c, seen := choices[rec.LegacyID]
		if !seen {
			choices[rec.LegacyID] = &choice{target: target, at: at, targets: []int64{target}}
			continue
		}
		if !slices.Contains(c.targets, target) {
			c.targets = append(c.targets, target)
		}
		if at >= c.at {
			c.target, c.at = target, at
		}
	}

	mapping := make(map[string]int64, len(choices))
	var conflicts []TargetConflict
	for _, legacyID := range sortedKeys(choices) {
		c := choices[legacyID]
		mapping[legacyID] = c.target
		if len(c.targets) > 1 {
			targets := slices.Clone(c.targets)
			slices.Sort(targets)
			conflicts = append(conflicts, TargetConflict{LegacyID: legacyID, Targets: targets, Chosen: c.target})
		}
	}
	return mapping, conflicts
}

// follow walks legacyID through the mapping until it reaches an id that is
// not itself mapped. A target equal to its own legacy id ends the walk. An
// unmapped target that exists in the catalog is final even when the same
// number also shows up as a pending legacy id somewhere in the corpus.
func follow(legacyID string, mapping map[string]int64, tracked map[string]struct{}, idx *catalog.Index) (int64, []string, string) {
	chain := []string{legacyID}
	seen := map[string]struct{}{legacyID: {}}
	current := legacyID
	for {
		target := mapping[current]
		next := strconv.FormatInt(target, 10)
		if next == current {
			return target, chain, ""
		}
		chain = append(chain, next)
		if _, loop := seen[next]; loop {
			return 0, chain, reasonCycle
		}
		if _, mapped := mapping[next]; !mapped {
			if inCatalog(idx, target) {
				return target, chain, ""
			}
			if _, pending := tracked[next]; pending {
				return 0, chain, reasonPending
			}
			return target, chain, ""
		}
		seen[next] = struct{}{}
		current = next
	}
}

// pathRules maps every resolved record's nearby link path to the canonical
// path of its final target. A path claimed by different targets is reported
// and skipped.
func pathRules(records []ledger.Record, directives map[string]int64, idx *catalog.Index, grammar *shortcode.Grammar) ([]*shortcode.PathRule, []PathConflict) {
	candidates := make(map[string][]string)
	for _, rec := range records {
		if !rec.State.Resolved() || rec.Signals.NearbyPath == "" {
			continue
		}
		final, ok := directives[rec.LegacyID]
		if !ok {
			continue
		}
		entry, ok := idx.ByID(final)
		if !ok {
			continue
		}
		newPath := grammar.CanonicalPath(entry.Slug)
		if !slices.Contains(candidates[rec.Signals.NearbyPath], newPath) {
			candidates[rec.Signals.NearbyPath] = append(candidates[rec.Signals.NearbyPath], newPath)
		}
	}

	var (
		rules     []*shortcode.PathRule
		conflicts []PathConflict
	)
	for _, oldPath := range sortedKeys(candidates) {
		paths := candidates[oldPath]
		if len(paths) > 1 {
			sorted := slices.Clone(paths)
			slices.Sort(sorted)
			conflicts = append(conflicts, PathConflict{Path: oldPath, Candidates: sorted})
			continue
		}
		if rule, ok := shortcode.NewPathRule(oldPath, paths[0]); ok {
			rules = append(rules, rule)
		}
	}
	// Longer paths first so a rule never rewrites inside a longer legacy path.
	slices.SortStableFunc(rules, func(a, b *shortcode.PathRule) int {
		return cmp.Compare(len(b.Old), len(a.Old))
	})
	return rules, conflicts
}

func inCatalog(idx *catalog.Index, id int64) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.ByID(id)
	return ok
}

func keysFor(records []ledger.Record, legacyID string) []ledger.Key {
	var keys []ledger.Key
	for _, rec := range records {
		if rec.LegacyID == legacyID && rec.State.Resolved() {
			keys = append(keys, rec.Key())
		}
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
