package ledger

import (
	"fmt"
	"strings"

	"relink/internal/logging"
	"relink/internal/signals"
)

// FindByKey returns a copy of the record stored under key.
func (l *Ledger) FindByKey(key Key) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byKey[key]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// UpsertIfAbsent inserts rec unless its key is already tracked. Existing
// records are never overwritten. It reports whether rec was inserted.
func (l *Ledger) UpsertIfAbsent(rec Record) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	rec.LegacyID = strings.TrimSpace(rec.LegacyID)
	if rec.State == "" {
		rec.State = StatePending
	}
	if err := rec.validate(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byKey[rec.Key()]; exists {
		return false, nil
	}
	now := l.now()
	if rec.DiscoveredAt.IsZero() {
		rec.DiscoveredAt = now
	}
	if rec.State.Terminal() && rec.ReviewedAt == nil {
		rec.ReviewedAt = timePtr(now)
	}
	stored := &rec
	l.records = append(l.records, stored)
	l.byKey[rec.Key()] = stored
	l.memory.observe(stored)
	if stored.Discontinued {
		if entry, ok := l.memory.discontinued[stored.LegacyID]; ok {
			entry.addOccurrence(Occurrence{ContentID: stored.ContentID, Title: stored.Title})
		}
	}
	l.dirty = true
	return true, nil
}

// RecordDecision moves the pending record under key to a terminal state. A
// decision on a record that is already terminal is a no-op and reports false.
func (l *Ledger) RecordDecision(key Key, d Decision) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	if err := d.validate(); err != nil {
		return false, err
	}
	if d.Source == "" {
		d.Source = SourceOperator
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byKey[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if rec.State.Terminal() {
		return false, nil
	}
	l.decide(rec, d)
	l.logger.Debug("decision recorded",
		logging.String("key", key.String()),
		logging.String("state", string(d.State)),
		logging.Int64("target_id", d.TargetID),
		logging.String("source", string(d.Source)))
	return true, nil
}

// decide applies d to a pending record. Callers hold l.mu.
func (l *Ledger) decide(rec *Record, d Decision) {
	rec.State = d.State
	rec.TargetID = nil
	if d.State.Resolved() {
		rec.TargetID = int64Ptr(d.TargetID)
	}
	rec.Source = d.Source
	rec.ReviewedAt = timePtr(l.now())
	if d.Note != "" {
		rec.Note = d.Note
	}
	l.memory.observe(rec)
	l.dirty = true
}

// PropagateBySlug approves every pending record whose nearby slug is slug and
// remembers the slug decision for future scans. It returns the number of
// records changed.
func (l *Ledger) PropagateBySlug(slug string, targetID int64) (int, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, nil
	}
	return l.propagate(Decision{State: StateApproved, TargetID: targetID, Source: SourceSlug}, func(rec *Record) bool {
		return rec.Signals.NearbySlug == slug
	})
}

// PropagateByLegacyID approves every pending record carrying legacyID.
func (l *Ledger) PropagateByLegacyID(legacyID string, targetID int64) (int, error) {
	legacyID = strings.TrimSpace(legacyID)
	if legacyID == "" {
		return 0, nil
	}
	return l.propagate(Decision{State: StateApproved, TargetID: targetID, Source: SourceLegacyID}, func(rec *Record) bool {
		return rec.LegacyID == legacyID
	})
}

func (l *Ledger) propagate(d Decision, match func(*Record) bool) (int, error) {
	if err := l.writable(); err != nil {
		return 0, err
	}
	if err := d.validate(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, rec := range l.records {
		if rec.State != StatePending || !match(rec) {
			continue
		}
		l.decide(rec, d)
		count++
	}
	return count, nil
}

// MarkDiscontinued rejects every pending record carrying legacyID, records
// every content item known to reference it for audit, and makes later scans
// reject new occurrences without matching. It returns the number of pending
// records rejected.
func (l *Ledger) MarkDiscontinued(legacyID string, representative signals.Signals, note string) (int, error) {
	if err := l.writable(); err != nil {
		return 0, err
	}
	legacyID = strings.TrimSpace(legacyID)
	if legacyID == "" {
		return 0, fmt.Errorf("%w: empty legacy id", ErrUnknownKey)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.memory.discontinued[legacyID]
	if !ok {
		entry = &DiscontinuedEntry{
			LegacyID:              legacyID,
			RepresentativeContext: representative,
			Note:                  note,
			MarkedAt:              l.now(),
		}
		l.memory.discontinued[legacyID] = entry
	}

	count := 0
	for _, rec := range l.records {
		if rec.LegacyID != legacyID {
			continue
		}
		entry.addOccurrence(Occurrence{ContentID: rec.ContentID, Title: rec.Title})
		if rec.State == StateRejected {
			rec.Discontinued = true
		}
		if rec.State != StatePending {
			continue
		}
		rec.Discontinued = true
		l.decide(rec, Decision{State: StateRejected, Note: note, Source: SourceDiscontinued})
		count++
	}
	l.dirty = true
	l.logger.Info("legacy id marked discontinued",
		logging.String(logging.FieldEventType, "legacy_discontinued"),
		logging.String("legacy_id", legacyID),
		logging.Int("rejected", count),
		logging.Int("occurrences", len(entry.Occurrences)))
	return count, nil
}

// IsDiscontinued reports whether legacyID was marked discontinued.
func (l *Ledger) IsDiscontinued(legacyID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.memory.discontinued[strings.TrimSpace(legacyID)]
	return ok
}

// SlugDecision returns the remembered target for a nearby slug.
func (l *Ledger) SlugDecision(slug string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	target, ok := l.memory.slugDecisions[slug]
	return target, ok
}

// IsRejectedSlug reports whether an operator rejected an occurrence near slug.
func (l *Ledger) IsRejectedSlug(slug string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.memory.rejectedSlugs[slug]
	return ok
}

// ResolvedTarget returns the target of the most recent approved or manual
// decision for legacyID.
func (l *Ledger) ResolvedTarget(legacyID string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var (
		best  *Record
		found bool
	)
	for _, rec := range l.records {
		if rec.LegacyID != legacyID || !rec.State.Resolved() {
			continue
		}
		if !found || reviewedUnix(rec) >= reviewedUnix(best) {
			best, found = rec, true
		}
	}
	if !found {
		return 0, false
	}
	return *best.TargetID, true
}

// Tracks reports whether any record carries legacyID.
func (l *Ledger) Tracks(legacyID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		if rec.LegacyID == legacyID {
			return true
		}
	}
	return false
}

// Pending returns copies of all pending records in discovery order.
func (l *Ledger) Pending() []Record {
	return l.filter(func(rec *Record) bool { return rec.State == StatePending })
}

// Records returns copies of every record in discovery order.
func (l *Ledger) Records() []Record {
	return l.filter(func(*Record) bool { return true })
}

func (l *Ledger) filter(keep func(*Record) bool) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		if keep(rec) {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Stats returns counts by state and pattern-memory sizes.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := Stats{
		Total:         len(l.records),
		SlugDecisions: len(l.memory.slugDecisions),
		RejectedSlugs: len(l.memory.rejectedSlugs),
		Discontinued:  len(l.memory.discontinued),
		CreatedAt:     l.createdAt,
		UpdatedAt:     l.updatedAt,
	}
	for _, rec := range l.records {
		switch rec.State {
		case StatePending:
			stats.Pending++
		case StateApproved:
			stats.Approved++
		case StateManual:
			stats.Manual++
		case StateRejected:
			stats.Rejected++
		}
	}
	return stats
}

// DiscontinuedAudit returns the discontinued legacy ids with every content
// item known to reference them, ordered by legacy id.
func (l *Ledger) DiscontinuedAudit() []DiscontinuedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.memory.discontinuedCopy()
	out := make([]DiscontinuedEntry, 0, len(entries))
	for _, legacyID := range sortedKeys(entries) {
		out = append(out, entries[legacyID])
	}
	return out
}
