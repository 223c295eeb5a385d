package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// NotificationService turns ticket events into stored notification records.
// It is invoked inside the same transaction as the mutation that triggered
// the event, so notifications and state changes commit together.
type NotificationService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(users repository.UserRepository, notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// TicketEvent carries the transition context a notification template needs.
type TicketEvent struct {
	Type        domain.NotificationType
	Ticket      *domain.Ticket
	Actor       domain.Actor
	OldStatus   domain.TicketStatus
	NewStatus   domain.TicketStatus
	OldPriority domain.TicketPriority
	NewPriority domain.TicketPriority
}

// Dispatch resolves the fan-out matrix for the event and inserts one
// notification per recipient. Finding no recipients is not an error.
func (n *NotificationService) Dispatch(ctx context.Context, event TicketEvent) ([]domain.Notification, error) {
	recipients, err := resolveRecipients(ctx, n.users, event.Type, event.Ticket, event.Actor)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	title, message := notificationContent(event)
	senderID := event.Actor.ID
	created := make([]domain.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notification := domain.Notification{
			RecipientID:   recipient.UserID,
			RecipientRole: recipient.Role,
			SenderID:      &senderID,
			TicketID:      &event.Ticket.ID,
			Title:         title,
			Message:       message,
			Type:          event.Type,
		}
		if err := n.notifications.Create(ctx, &notification); err != nil {
			return nil, err
		}
		created = append(created, notification)
	}
	n.logger.Debug("notifications dispatched",
		zap.String("ticket_id", event.Ticket.ID),
		zap.String("event", string(event.Type)),
		zap.Int("recipients", len(created)))
	return created, nil
}

// Notify inserts a single custom notification outside the fan-out matrix,
// e.g. the informational note to an owner whose ticket an admin deleted.
func (n *NotificationService) Notify(ctx context.Context, recipientID string, recipientRole domain.Role, sender domain.Actor, ticketID *string, title, message string) error {
	if recipientID == "" || recipientID == sender.ID {
		return nil
	}
	senderID := sender.ID
	return n.notifications.Create(ctx, &domain.Notification{
		RecipientID:   recipientID,
		RecipientRole: recipientRole,
		SenderID:      &senderID,
		TicketID:      ticketID,
		Title:         title,
		Message:       message,
		Type:          domain.NotificationCustom,
	})
}

// Inbox lists the actor's notifications, newest first.
func (n *NotificationService) Inbox(ctx context.Context, actor domain.Actor, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return n.notifications.ListByRecipient(ctx, actor.ID, unreadOnly, limit, offset)
}

// MarkRead acknowledges one of the actor's notifications. Acknowledging a
// notification that is already read, or that belongs to someone else, is a
// no-op.
func (n *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	return n.notifications.MarkRead(ctx, notificationID, actor.ID, time.Now())
}

// UnreadCount returns the actor's unread badge count.
func (n *NotificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	return n.notifications.CountUnread(ctx, actor.ID)
}

// notificationContent renders the human-readable title and message for an
// event. Wording is informational only; consumers key off Type and TicketID.
func notificationContent(event TicketEvent) (string, string) {
	title := event.Ticket.Title
	switch event.Type {
	case domain.NotificationNewTicket:
		return "New ticket", fmt.Sprintf("A new ticket %q was submitted.", title)
	case domain.NotificationStatusChange:
		return "Ticket status updated",
			fmt.Sprintf("Ticket %q moved from %s to %s.", title, event.OldStatus, event.NewStatus)
	case domain.NotificationPriorityChange:
		return "Ticket priority updated",
			fmt.Sprintf("Ticket %q priority changed from %s to %s.", title, event.OldPriority, event.NewPriority)
	case domain.NotificationAssignment:
		return "Ticket assigned", fmt.Sprintf("Ticket %q has been assigned.", title)
	case domain.NotificationFeedback:
		return "New feedback", fmt.Sprintf("Ticket %q received new feedback.", title)
	case domain.NotificationChatMessage:
		return "New chat message", fmt.Sprintf("Ticket %q has a new chat message.", title)
	default:
		return "Ticket update", fmt.Sprintf("Ticket %q was updated.", title)
	}
}
