/*
state.go - Filing lifecycle state machine

PURPOSE:
  Guards every status change a FilingRecord can undergo:

      draft -> calculated -> submitted -> accepted
                   ^              |
                   |              v
                   +---------- rejected

  Rejected returns a record to the recalculable set. Accepted is terminal;
  corrections happen through an amendment, which is a NEW record linked to
  the original (the original stays accepted and immutable).

  Any edge not listed fails with IllegalTransitionError and leaves the
  record unchanged.

SEE ALSO:
  - record.go: Frozen/Recalculable predicates
  - service.go: Drives transitions from calculation and gateway results
*/
package filing

import "time"

// =============================================================================
// FILING STATUS
// =============================================================================

// FilingStatus is the lifecycle state of a FilingRecord.
type FilingStatus string

const (
	StatusDraft      FilingStatus = "draft"
	StatusCalculated FilingStatus = "calculated"
	StatusSubmitted  FilingStatus = "submitted"
	StatusAccepted   FilingStatus = "accepted"
	StatusRejected   FilingStatus = "rejected"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// legalTransitions enumerates every permitted edge. Everything else fails.
var legalTransitions = map[FilingStatus][]FilingStatus{
	StatusDraft:      {StatusCalculated},
	StatusCalculated: {StatusSubmitted, StatusCalculated, StatusDraft},
	StatusSubmitted:  {StatusAccepted, StatusRejected},
	StatusRejected:   {StatusCalculated, StatusDraft},
	StatusAccepted:   {}, // terminal - amendments create a new record
}

// FilingStateMachine guards lifecycle transitions.
// Stateless; the record carries the state.
type FilingStateMachine struct{}

// CanTransition reports whether from -> to is a legal edge.
func (FilingStateMachine) CanTransition(from, to FilingStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the record to the target status, updating its timestamp.
// On an illegal edge the record is left untouched.
func (sm FilingStateMachine) Transition(record *FilingRecord, to FilingStatus) error {
	if !sm.CanTransition(record.Status, to) {
		return &IllegalTransitionError{From: record.Status, To: to}
	}
	record.Status = to
	record.UpdatedAt = time.Now().UTC()
	return nil
}
