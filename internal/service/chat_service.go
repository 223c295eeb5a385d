package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ChatService manages the conversation thread on a ticket and the per-user
// read tracking of its messages. Closed tickets freeze the thread: posting,
// attachment upload, and deletion are all denied once status is closed.
type ChatService struct {
	tickets     repository.TicketRepository
	messages    repository.ChatMessageRepository
	attachments repository.ChatAttachmentRepository
	notifier    *NotificationService
	tx          repository.TxManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.ChatMessageRepository
	AttachmentRepo repository.ChatAttachmentRepository
	Notifier       *NotificationService
	Tx             repository.TxManager
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		notifier:    deps.Notifier,
		tx:          deps.Tx,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// PostMessage appends a chat message to a ticket's thread. The author is
// seeded into the read set: a message is read by its own sender.
func (s *ChatService) PostMessage(ctx context.Context, actor domain.Actor, ticketID, body string) (*domain.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	var message *domain.ChatMessage
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.chatTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if !canParticipate(actor, ticket) {
			return apperrors.NewForbidden("no access to this ticket")
		}
		message = &domain.ChatMessage{
			TicketID: ticket.ID,
			AuthorID: actor.ID,
			Body:     body,
			ReadBy:   []string{actor.ID},
		}
		if err := s.messages.Create(ctx, message); err != nil {
			return err
		}
		_, err = s.notifier.Dispatch(ctx, TicketEvent{
			Type:   domain.NotificationChatMessage,
			Ticket: ticket,
			Actor:  actor,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor, message, false)
	return message, nil
}

// PostSystemMessage appends a system-authored message, e.g. an automated
// note about a lifecycle transition. Same closed-ticket freeze applies.
func (s *ChatService) PostSystemMessage(ctx context.Context, actor domain.Actor, ticketID, body string) (*domain.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	var message *domain.ChatMessage
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.chatTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		message = &domain.ChatMessage{
			TicketID: ticket.ID,
			AuthorID: actor.ID,
			Body:     body,
			IsSystem: true,
			ReadBy:   []string{actor.ID},
		}
		return s.messages.Create(ctx, message)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor, message, true)
	return message, nil
}

// MarkRead adds userID to the read set of every message that does not
// already contain it. Idempotent: re-marking is a no-op.
func (s *ChatService) MarkRead(ctx context.Context, messages []domain.ChatMessage, userID string) error {
	for i := range messages {
		if messages[i].ReadByUser(userID) {
			continue
		}
		if err := s.messages.AddReader(ctx, messages[i].ID, userID); err != nil {
			return apperrors.MapError(err)
		}
	}
	return nil
}

// MarkTicketRead marks every message on the ticket as read by userID.
func (s *ChatService) MarkTicketRead(ctx context.Context, ticketID, userID string) error {
	messages, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return s.MarkRead(ctx, messages, userID)
}

// HasUnread reports whether any non-deleted chat message on the ticket has
// a read set that excludes userID.
func (s *ChatService) HasUnread(ctx context.Context, ticketID, userID string) (bool, error) {
	messages, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	for i := range messages {
		if messages[i].Deleted() {
			continue
		}
		if !messages[i].ReadByUser(userID) {
			return true, nil
		}
	}
	return false, nil
}

// ListMessages returns the non-deleted thread for participants.
func (s *ChatService) ListMessages(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.ChatMessage, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canParticipate(actor, ticket) {
		return nil, apperrors.NewForbidden("no access to this ticket")
	}
	messages, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// DeleteMessage soft-deletes a chat message. Only the author or an admin
// may delete, and never on a closed ticket.
func (s *ChatService) DeleteMessage(ctx context.Context, actor domain.Actor, messageID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		message, err := s.loadMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if _, err := s.chatTicket(ctx, message.TicketID); err != nil {
			return err
		}
		if message.AuthorID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the author or an admin may delete a message")
		}
		return s.messages.SoftDelete(ctx, message.ID, time.Now())
	})
	return apperrors.MapError(err)
}

// AddAttachment records attachment metadata on a message. Frozen once the
// ticket is closed.
func (s *ChatService) AddAttachment(ctx context.Context, actor domain.Actor, messageID, fileName, storageKey string) (*domain.ChatAttachment, error) {
	if strings.TrimSpace(fileName) == "" || strings.TrimSpace(storageKey) == "" {
		return nil, apperrors.NewValidationError("file_name and storage_key required", nil)
	}

	var attachment *domain.ChatAttachment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		message, err := s.loadMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if _, err := s.chatTicket(ctx, message.TicketID); err != nil {
			return err
		}
		if message.AuthorID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the author or an admin may attach files")
		}
		attachment = &domain.ChatAttachment{
			MessageID:  message.ID,
			FileName:   fileName,
			StorageKey: storageKey,
		}
		return s.attachments.Create(ctx, attachment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// DeleteAttachment removes attachment metadata. Frozen once the ticket is
// closed; author or admin only.
func (s *ChatService) DeleteAttachment(ctx context.Context, actor domain.Actor, attachmentID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		attachment, err := s.attachments.GetByID(ctx, attachmentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
			}
			return err
		}
		message, err := s.loadMessage(ctx, attachment.MessageID)
		if err != nil {
			return err
		}
		if _, err := s.chatTicket(ctx, message.TicketID); err != nil {
			return err
		}
		if message.AuthorID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the author or an admin may remove attachments")
		}
		return s.attachments.Delete(ctx, attachment.ID)
	})
	return apperrors.MapError(err)
}

func (s *ChatService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Deleted() {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// chatTicket loads the ticket and enforces the closed-ticket chat freeze.
func (s *ChatService) chatTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewForbidden("ticket is closed; chat is frozen")
	}
	return ticket, nil
}

func (s *ChatService) loadMessage(ctx context.Context, messageID string) (*domain.ChatMessage, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
		}
		return nil, err
	}
	if message.Deleted() {
		return nil, apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
	}
	return message, nil
}

func (s *ChatService) publishEvent(ctx context.Context, actor domain.Actor, message *domain.ChatMessage, isSystem bool) {
	if s.dispatcher == nil || message == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventChatMessagePosted,
		TicketID:  message.TicketID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload: events.ChatMessagePostedPayload{
			MessageID: message.ID,
			IsSystem:  isSystem,
			Preview:   stringPreview(message.Body, 120),
		},
	})
}
