package domain

import "time"

// NotificationType enumerates the events a notification can describe.
type NotificationType string

const (
	NotificationNewTicket      NotificationType = "new_ticket"
	NotificationAssignment     NotificationType = "assignment"
	NotificationStatusChange   NotificationType = "status_change"
	NotificationPriorityChange NotificationType = "priority_change"
	NotificationFeedback       NotificationType = "feedback"
	NotificationChatMessage    NotificationType = "chat_message"
	NotificationCustom         NotificationType = "custom"
)

// Notification is created only by the dispatcher. RecipientRole is
// denormalized at creation time. TicketID is a weak reference: hard
// deleting a ticket nulls it without deleting the notification.
type Notification struct {
	ID            string
	RecipientID   string
	RecipientRole Role
	SenderID      *string
	TicketID      *string
	Title         string
	Message       string
	Type          NotificationType
	ReadAt        *time.Time
	CreatedAt     time.Time
}

// Unread reports whether the notification has not been acknowledged.
func (n *Notification) Unread() bool {
	return n.ReadAt == nil
}
