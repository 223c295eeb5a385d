package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventFeedbackAdded         EventType = "feedback_added"
	EventChatMessagePosted     EventType = "chat_message_posted"
)

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Priority  domain.TicketPriority `json:"priority"`
	Anonymous bool                  `json:"anonymous"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID    string              `json:"assignee_id"`
	StatusAdvance domain.TicketStatus `json:"status_advance,omitempty"`
}

// FeedbackAddedPayload payload.
type FeedbackAddedPayload struct {
	FeedbackID string `json:"feedback_id"`
	Preview    string `json:"preview"`
}

// ChatMessagePostedPayload payload.
type ChatMessagePostedPayload struct {
	MessageID string `json:"message_id"`
	IsSystem  bool   `json:"is_system"`
	Preview   string `json:"preview"`
}
