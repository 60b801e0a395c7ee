package domain

import (
	"fmt"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// allowedTransitions lists every status edge. Self-edges are the review
// loops (officer returns a complaint to the cadet, detective reassignment).
var allowedTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusDraft:         {CaseStatusUnderReview},
	CaseStatusUnderReview:   {CaseStatusDraft, CaseStatusUnderReview, CaseStatusOpen, CaseStatusVoid},
	CaseStatusOpen:          {CaseStatusInvestigating},
	CaseStatusInvestigating: {CaseStatusInvestigating, CaseStatusSentToCourt},
	CaseStatusSentToCourt:   {CaseStatusClosed},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to CaseStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusChange describes one committed status edge.
type StatusChange struct {
	From CaseStatus
	To   CaseStatus
}

// transition is the only writer of Case.Status.
func (c *Case) transition(to CaseStatus, actor types.ID, eventType CaseEventType, details string, data map[string]any) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	from := c.Status
	if !CanTransition(from, to) {
		return errors.InvalidState(fmt.Sprintf("cannot move case from %s to %s", from, to))
	}

	c.Status = to
	c.UpdatedAt = time.Now()

	if data == nil {
		data = map[string]any{}
	}
	data["old_status"] = from
	data["new_status"] = to
	c.addEvent(eventType, actor, details, data)
	return nil
}

// ensureActive rejects any mutation of a closed or void case.
func (c *Case) ensureActive() error {
	if c.Status.IsTerminal() {
		return errors.InvalidState(fmt.Sprintf("case is %s", c.Status))
	}
	return nil
}

// StatusChanges extracts the status edges from journal entries.
func StatusChanges(events []CaseEvent) []StatusChange {
	var changes []StatusChange
	for _, e := range events {
		from, okFrom := e.Data["old_status"].(CaseStatus)
		to, okTo := e.Data["new_status"].(CaseStatus)
		if okFrom && okTo {
			changes = append(changes, StatusChange{From: from, To: to})
		}
	}
	return changes
}
