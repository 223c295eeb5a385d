package domain

import "time"

// HistoryAction captures what kind of mutation a history entry records.
type HistoryAction string

const (
	HistoryActionCreate         HistoryAction = "create"
	HistoryActionStatusChange   HistoryAction = "status_change"
	HistoryActionPriorityChange HistoryAction = "priority_change"
	HistoryActionAssignment     HistoryAction = "assignment"
	HistoryActionRestore        HistoryAction = "restore"
	HistoryActionDelete         HistoryAction = "delete"
)

// TicketHistory is an immutable audit trail entry. One row per mutation;
// the old/new pairs not touched by the action stay nil rather than omitted.
type TicketHistory struct {
	ID          string
	TicketID    string
	ActorID     string
	Action      HistoryAction
	OldStatus   *TicketStatus
	NewStatus   *TicketStatus
	OldPriority *TicketPriority
	NewPriority *TicketPriority
	OldAssignee *string
	NewAssignee *string
	Comment     string
	CreatedAt   time.Time
}
