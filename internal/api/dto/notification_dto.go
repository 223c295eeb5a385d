package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	SenderID  *string                 `json:"sender_id"`
	TicketID  *string                 `json:"ticket_id"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      domain.NotificationType `json:"type"`
	ReadAt    *time.Time              `json:"read_at"`
	CreatedAt time.Time               `json:"created_at"`
}

// UnreadCountResponse carries the unread badge count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// NotificationFromDomain maps a notification for responses.
func NotificationFromDomain(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		SenderID:  n.SenderID,
		TicketID:  n.TicketID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
