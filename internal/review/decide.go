package review

import (
	"errors"
	"fmt"

	"relink/internal/ledger"
)

// ErrNotPending reports a decision for a record that is already terminal.
var ErrNotPending = errors.New("record is not pending")

// Decide applies one operator action to a single key without prompting. Only
// target, reject and discontinue actions are accepted. Propagation and
// persistence follow the interactive path.
func (w *Workflow) Decide(key ledger.Key, action Action) (Summary, error) {
	rec, ok := w.ledger.FindByKey(key)
	if !ok {
		return Summary{}, fmt.Errorf("decide %s: %w", key, ledger.ErrUnknownKey)
	}
	if rec.State != ledger.StatePending {
		return Summary{}, fmt.Errorf("decide %s: %w (state %s)", key, ErrNotPending, rec.State)
	}
	summary := Summary{Pending: 1}

	var decision ledger.Decision
	switch action.Kind {
	case ActionTarget:
		if reason := w.invalidTarget(rec, action.TargetID); reason != "" {
			return summary, fmt.Errorf("decide %s: %s", key, reason)
		}
		decision = ledger.Decision{State: ledger.StateManual, TargetID: action.TargetID, Note: action.Note}
	case ActionReject:
		decision = ledger.Decision{State: ledger.StateRejected, Note: action.Note}
	case ActionDiscontinue:
		if err := w.discontinue(rec, action.Note, &summary); err != nil {
			return summary, err
		}
		return w.finish(summary), nil
	default:
		return summary, fmt.Errorf("decide %s: unsupported action %s", key, action.Kind)
	}

	decision.Source = ledger.SourceOperator
	decided, err := w.decide(rec, decision, action.Kind.String(), &summary)
	if err != nil {
		return summary, err
	}
	if decided {
		if decision.State == ledger.StateManual {
			summary.Manual++
		} else {
			summary.Rejected++
		}
	}
	return w.finish(summary), nil
}
