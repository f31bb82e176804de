package ledger

import (
	"cmp"
	"maps"
	"slices"
	"time"
)

// patternMemory holds the shortcuts derived from records. It is never a
// source of truth on its own: rebuildMemory recreates it from the records,
// and every record write updates it in step.
type patternMemory struct {
	slugDecisions map[string]int64
	slugDecidedAt map[string]time.Time
	rejectedSlugs map[string]struct{}
	discontinued  map[string]*DiscontinuedEntry
}

func newPatternMemory() *patternMemory {
	return &patternMemory{
		slugDecisions: make(map[string]int64),
		slugDecidedAt: make(map[string]time.Time),
		rejectedSlugs: make(map[string]struct{}),
		discontinued:  make(map[string]*DiscontinuedEntry),
	}
}

// rebuildMemory derives pattern memory from records. The discontinued audit
// trail is taken from the snapshot since the occurrence list reflects the
// moment of marking; legacy ids flagged on records but missing from the
// trail are restored from the records themselves.
func rebuildMemory(records []*Record, audit map[string]DiscontinuedEntry) *patternMemory {
	m := newPatternMemory()

	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(a, b *Record) int {
		return cmp.Compare(reviewedUnix(a), reviewedUnix(b))
	})
	for _, rec := range ordered {
		m.observe(rec)
	}

	for legacyID, entry := range audit {
		entry.LegacyID = legacyID
		m.discontinued[legacyID] = &entry
	}
	for _, rec := range records {
		if !rec.Discontinued {
			continue
		}
		entry, ok := m.discontinued[rec.LegacyID]
		if !ok {
			entry = &DiscontinuedEntry{LegacyID: rec.LegacyID, RepresentativeContext: rec.Signals}
			if rec.ReviewedAt != nil {
				entry.MarkedAt = *rec.ReviewedAt
			}
			m.discontinued[rec.LegacyID] = entry
		}
		entry.addOccurrence(Occurrence{ContentID: rec.ContentID, Title: rec.Title})
	}
	return m
}

func reviewedUnix(rec *Record) int64 {
	if rec.ReviewedAt == nil {
		return 0
	}
	return rec.ReviewedAt.UnixNano()
}

// observe folds one terminal record into the slug shortcuts.
func (m *patternMemory) observe(rec *Record) {
	slug := rec.Signals.NearbySlug
	if slug == "" || !rec.State.Terminal() {
		return
	}
	switch {
	case rec.State.Resolved():
		at := time.Time{}
		if rec.ReviewedAt != nil {
			at = *rec.ReviewedAt
		}
		if prev, ok := m.slugDecidedAt[slug]; ok && prev.After(at) {
			return
		}
		m.slugDecisions[slug] = *rec.TargetID
		m.slugDecidedAt[slug] = at
		delete(m.rejectedSlugs, slug)
	case rec.State == StateRejected && rec.Source == SourceOperator:
		if _, decided := m.slugDecisions[slug]; !decided {
			m.rejectedSlugs[slug] = struct{}{}
		}
	}
}

func (e *DiscontinuedEntry) addOccurrence(o Occurrence) {
	if slices.Contains(e.Occurrences, o) {
		return
	}
	e.Occurrences = append(e.Occurrences, o)
	slices.SortFunc(e.Occurrences, func(a, b Occurrence) int {
		return cmp.Compare(a.ContentID, b.ContentID)
	})
}

func (m *patternMemory) slugDecisionsCopy() map[string]int64 {
	return maps.Clone(m.slugDecisions)
}

func (m *patternMemory) rejectedSlugList() []string {
	out := make([]string, 0, len(m.rejectedSlugs))
	for slug := range m.rejectedSlugs {
		out = append(out, slug)
	}
	slices.Sort(out)
	return out
}

func (m *patternMemory) discontinuedCopy() map[string]DiscontinuedEntry {
	out := make(map[string]DiscontinuedEntry, len(m.discontinued))
	for legacyID, entry := range m.discontinued {
		copied := *entry
		copied.Occurrences = slices.Clone(entry.Occurrences)
		out[legacyID] = copied
	}
	return out
}
