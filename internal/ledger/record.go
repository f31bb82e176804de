package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"relink/internal/signals"
)

var (
	// ErrCorrupt indicates the snapshot on disk could not be trusted.
	ErrCorrupt = errors.New("ledger snapshot corrupt")
	// ErrSchemaMismatch indicates the snapshot was written by an incompatible version.
	ErrSchemaMismatch = errors.New("ledger schema version mismatch")
	// ErrLocked indicates another process holds the ledger lock.
	ErrLocked = errors.New("ledger is locked by another process")
	// ErrUnknownKey indicates a decision for a key the ledger does not track.
	ErrUnknownKey = errors.New("unknown ledger key")
	// ErrReadOnly indicates a write against a ledger opened without the lock.
	ErrReadOnly = errors.New("ledger opened read-only")
)

// State is the lifecycle position of a decision record.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateManual   State = "manual"
	StateRejected State = "rejected"
)

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateManual || s == StateRejected
}

// Resolved reports whether the state carries a target.
func (s State) Resolved() bool {
	return s == StateApproved || s == StateManual
}

func (s State) valid() bool {
	return s == StatePending || s.Terminal()
}

// Source names what produced a terminal decision.
type Source string

const (
	SourceScan         Source = "scan"
	SourceAuto         Source = "auto"
	SourceOperator     Source = "operator"
	SourceSlug         Source = "slug"
	SourceLegacyID     Source = "legacy_id"
	SourceDiscontinued Source = "discontinued"
)

// Key identifies one legacy identifier inside one content item.
type Key struct {
	ContentID int64
	LegacyID  string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s", k.ContentID, k.LegacyID)
}

// ParseKey parses the "<content id>:<legacy id>" form produced by Key.String.
func ParseKey(value string) (Key, error) {
	contentPart, legacy, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return Key{}, fmt.Errorf("ledger key %q: expected <content id>:<legacy id>", value)
	}
	contentID, err := strconv.ParseInt(strings.TrimSpace(contentPart), 10, 64)
	if err != nil || contentID <= 0 {
		return Key{}, fmt.Errorf("ledger key %q: invalid content id", value)
	}
	legacy = strings.TrimSpace(legacy)
	if legacy == "" {
		return Key{}, fmt.Errorf("ledger key %q: empty legacy id", value)
	}
	return Key{ContentID: contentID, LegacyID: legacy}, nil
}

// Record is the persisted decision for one key.
type Record struct {
	ContentID    int64           `json:"content_id"`
	LegacyID     string          `json:"legacy_id"`
	Title        string          `json:"title"`
	RawToken     string          `json:"raw_token"`
	Signals      signals.Signals `json:"signals"`
	State        State           `json:"state"`
	TargetID     *int64          `json:"target_id,omitempty"`
	Source       Source          `json:"source,omitempty"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
	Note         string          `json:"note,omitempty"`
	Discontinued bool            `json:"discontinued,omitempty"`
	DiscoveredAt time.Time       `json:"discovered_at"`
}

// Key returns the record's ledger key.
func (r Record) Key() Key {
	return Key{ContentID: r.ContentID, LegacyID: r.LegacyID}
}

// Target returns the target id and whether one is set.
func (r Record) Target() (int64, bool) {
	if r.TargetID == nil {
		return 0, false
	}
	return *r.TargetID, true
}

// clone returns a copy that shares no pointers with r.
func (r Record) clone() Record {
	if r.TargetID != nil {
		r.TargetID = int64Ptr(*r.TargetID)
	}
	if r.ReviewedAt != nil {
		r.ReviewedAt = timePtr(*r.ReviewedAt)
	}
	return r
}

func (r Record) validate() error {
	if r.ContentID <= 0 || strings.TrimSpace(r.LegacyID) == "" {
		return fmt.Errorf("record %s: missing key", r.Key())
	}
	if !r.State.valid() {
		return fmt.Errorf("record %s: invalid state %q", r.Key(), r.State)
	}
	if r.State.Resolved() != (r.TargetID != nil) {
		return fmt.Errorf("record %s: state %s inconsistent with target", r.Key(), r.State)
	}
	return nil
}

// Decision is an operator or automatic verdict applied to a pending record.
type Decision struct {
	State    State
	TargetID int64
	Note     string
	Source   Source
}

func (d Decision) validate() error {
	switch d.State {
	case StateApproved, StateManual:
		if d.TargetID <= 0 {
			return fmt.Errorf("%s decision requires a positive target id", d.State)
		}
	case StateRejected:
		if d.TargetID != 0 {
			return errors.New("rejected decision must not carry a target id")
		}
	default:
		return fmt.Errorf("decision state %q is not terminal", d.State)
	}
	return nil
}

// Occurrence is a content item known to reference a legacy id.
type Occurrence struct {
	ContentID int64  `json:"content_id"`
	Title     string `json:"title"`
}

// DiscontinuedEntry is the audit trail for one discontinued legacy id.
type DiscontinuedEntry struct {
	LegacyID              string          `json:"legacy_id"`
	RepresentativeContext signals.Signals `json:"representative_context"`
	Note                  string          `json:"note,omitempty"`
	Occurrences           []Occurrence    `json:"occurrences"`
	MarkedAt              time.Time       `json:"marked_at"`
}

// Stats summarizes ledger contents.
type Stats struct {
	Total         int       `json:"total"`
	Pending       int       `json:"pending"`
	Approved      int       `json:"approved"`
	Manual        int       `json:"manual"`
	Rejected      int       `json:"rejected"`
	SlugDecisions int       `json:"slug_decisions"`
	RejectedSlugs int       `json:"rejected_slugs"`
	Discontinued  int       `json:"discontinued"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
