package invoice

import (
	"fatture/internal/core/apperror"
)

// transition is a from/to status pair.
type transition struct {
	from Status
	to   Status
}

// legalTransitions is the closed set of lifecycle moves. Anything not in this
// table is rejected, including self-transitions and moves out of the terminal
// states (paid, cancelled). Keeping the whole invariant in one literal makes
// it auditable at a glance.
var legalTransitions = map[transition]struct{}{
	{StatusDraft, StatusIssued}:      {},
	{StatusDraft, StatusCancelled}:   {},
	{StatusIssued, StatusSent}:       {},
	{StatusIssued, StatusCancelled}:  {},
	{StatusSent, StatusPaid}:         {},
	{StatusSent, StatusOverdue}:      {},
	{StatusSent, StatusCancelled}:    {},
	{StatusOverdue, StatusPaid}:      {},
	{StatusOverdue, StatusCancelled}: {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	_, ok := legalTransitions[transition{from, to}]
	return ok
}

// Transition moves the document to the target status, or returns a
// forbidden-operation error when the move is illegal.
// Side effects of particular transitions (numbering on draft->issued, the
// final totals recompute) belong to the service workflow, not to the table.
func (inv *Invoice) Transition(to Status) error {
	if !CanTransition(inv.Status, to) {
		return apperror.NewForbiddenOperation("illegal status transition").
			WithDetail("document_id", inv.ID.String()).
			WithDetail("from", string(inv.Status)).
			WithDetail("to", string(to))
	}
	inv.Status = to
	return nil
}
