package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidStatus reports whether the value is one of the four legal statuses.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether the value is one of the four legal priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// OwnerID stays recorded for anonymous submissions so ownership checks keep
// working; display layers hide it. Token is non-nil iff Anonymous is true and
// is never regenerated once assigned.
type Ticket struct {
	ID            string
	OwnerID       *string
	Anonymous     bool
	Token         *string
	CategoryID    string
	SubCategoryID *string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	AssignedTo    *string
	ReadByAdmin   bool
	ReadByStudent bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Deleted reports whether the ticket is soft-deleted.
func (t *Ticket) Deleted() bool {
	return t.DeletedAt != nil
}

// OwnedBy reports whether userID is the recorded owner.
func (t *Ticket) OwnedBy(userID string) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}
