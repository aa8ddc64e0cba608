package engine

import (
	"fmt"
	"sort"

	"github.com/ridgelinebank/teller/internal/model"
)

// ReplayedTurn is one derived step of an audit replay.
type ReplayedTurn struct {
	Turn     int
	IntentID string
	State    model.DecisionState
	Outcome  model.TurnOutcome
	Final    bool // terminal for its operation: executed, rejected, or failed
}

// Replay derives the decision trajectory of a session purely from its audit
// records. The derivation is deterministic: replaying the same records always
// produces the same result, which is what makes the audit log a sufficient
// account of every decision taken.
func Replay(records []model.AuditRecord) ([]ReplayedTurn, error) {
	sorted := append([]model.AuditRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Turn < sorted[j].Turn })

	turns := make([]ReplayedTurn, 0, len(sorted))
	for i, record := range sorted {
		if record.Turn != i+1 {
			return nil, fmt.Errorf("audit sequence has a gap: expected turn %d, got %d", i+1, record.Turn)
		}

		state := record.DecisionState
		if record.Outcome == model.OutcomeExecuted {
			state = model.StateExecuted
		}

		turns = append(turns, ReplayedTurn{
			Turn:     record.Turn,
			IntentID: record.Classification.IntentID,
			State:    state,
			Outcome:  record.Outcome,
			Final:    isTerminal(record.Outcome),
		})
	}
	return turns, nil
}

func isTerminal(outcome model.TurnOutcome) bool {
	switch outcome {
	case model.OutcomeExecuted, model.OutcomeRejected, model.OutcomeFailed:
		return true
	default:
		return false
	}
}
