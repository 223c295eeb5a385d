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
	"github.com/spec-kit/helpdesk/internal/token"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RevealCache remembers that an actor already proved access to an anonymous
// ticket's token, so repeated reads in the same session skip re-verification.
// Not part of the durable data model.
type RevealCache interface {
	MarkRevealed(ctx context.Context, ticketID, actorID string) error
	Revealed(ctx context.Context, ticketID, actorID string) (bool, error)
}

// PasswordVerifier checks a plaintext password against a user's stored
// credential. Supplied by the identity collaborator.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, plaintext string) (bool, error)
}

// LifecycleService orchestrates ticket mutations: it authorizes the actor,
// applies the state change, appends history, and dispatches notifications,
// all within one transaction per operation.
type LifecycleService struct {
	tickets       repository.TicketRepository
	history       repository.TicketHistoryRepository
	feedback      repository.FeedbackRepository
	users         repository.UserRepository
	categories    repository.CategoryRepository
	notifications repository.NotificationRepository
	notifier      *NotificationService
	tokens        *token.Service
	reveal        RevealCache
	passwords     PasswordVerifier
	tx            repository.TxManager
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo       repository.TicketRepository
	HistoryRepo      repository.TicketHistoryRepository
	FeedbackRepo     repository.FeedbackRepository
	UserRepo         repository.UserRepository
	CategoryRepo     repository.CategoryRepository
	NotificationRepo repository.NotificationRepository
	Notifier         *NotificationService
	Tokens           *token.Service
	Reveal           RevealCache
	Passwords        PasswordVerifier
	Tx               repository.TxManager
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:       deps.TicketRepo,
		history:       deps.HistoryRepo,
		feedback:      deps.FeedbackRepo,
		users:         deps.UserRepo,
		categories:    deps.CategoryRepo,
		notifications: deps.NotificationRepo,
		notifier:      deps.Notifier,
		tokens:        deps.Tokens,
		reveal:        deps.Reveal,
		passwords:     deps.Passwords,
		tx:            deps.Tx,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title         string
	Description   string
	CategoryID    string
	SubCategoryID *string
	Priority      domain.TicketPriority
	Anonymous     bool
}

// Create files a new ticket for the actor. Anonymous tickets get a unique
// token from the token service. The creator's own read flag starts true.
func (s *LifecycleService) Create(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" || input.CategoryID == "" {
		return nil, apperrors.NewValidationError("title, description and category_id are required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	exists, err := s.categories.Exists(ctx, input.CategoryID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !exists {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category_id": input.CategoryID})
	}
	if input.SubCategoryID != nil {
		ok, err := s.categories.SubCategoryExists(ctx, *input.SubCategoryID, input.CategoryID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !ok {
			return nil, apperrors.NewValidationError("unknown subcategory", map[string]any{"subcategory_id": *input.SubCategoryID})
		}
	}

	ownerID := actor.ID
	ticket := &domain.Ticket{
		OwnerID:       &ownerID,
		Anonymous:     input.Anonymous,
		CategoryID:    input.CategoryID,
		SubCategoryID: input.SubCategoryID,
		Title:         input.Title,
		Description:   input.Description,
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		ReadByStudent: true,
		ReadByAdmin:   false,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if input.Anonymous {
			tok, err := s.tokens.Generate(ctx)
			if err != nil {
				return err
			}
			ticket.Token = &tok
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		status := ticket.Status
		priority := ticket.Priority
		if err := s.history.Append(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ActorID:     actor.ID,
			Action:      domain.HistoryActionCreate,
			NewStatus:   &status,
			NewPriority: &priority,
		}); err != nil {
			return err
		}
		_, err := s.notifier.Dispatch(ctx, TicketEvent{
			Type:   domain.NotificationNewTicket,
			Ticket: ticket,
			Actor:  actor,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Priority:  ticket.Priority,
			Anonymous: ticket.Anonymous,
		},
	})
	return ticket, nil
}

// ChangeStatus transitions a ticket's status. Admins may set any status; the
// owning student may only close their own ticket; everyone else is denied.
func (s *LifecycleService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := authorizeStatusChange(actor, ticket, newStatus); err != nil {
			return err
		}
		oldStatus = ticket.Status
		ticket.Status = newStatus
		clearOppositeReadFlag(ticket, actor.Role)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		old, updated := oldStatus, newStatus
		if err := s.history.Append(ctx, &domain.TicketHistory{
			TicketID:  ticket.ID,
			ActorID:   actor.ID,
			Action:    domain.HistoryActionStatusChange,
			OldStatus: &old,
			NewStatus: &updated,
			Comment:   comment,
		}); err != nil {
			return err
		}
		if err := s.appendComment(ctx, actor, ticket.ID, comment); err != nil {
			return err
		}
		_, err = s.notifier.Dispatch(ctx, TicketEvent{
			Type:      domain.NotificationStatusChange,
			Ticket:    ticket,
			Actor:     actor,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// ChangePriority updates ticket priority. Admin only.
func (s *LifecycleService) ChangePriority(ctx context.Context, actor domain.Actor, ticketID string, newPriority domain.TicketPriority, comment string) (*domain.Ticket, error) {
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may change priority")
	}

	var ticket *domain.Ticket
	var oldPriority domain.TicketPriority
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		oldPriority = ticket.Priority
		ticket.Priority = newPriority
		clearOppositeReadFlag(ticket, actor.Role)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		old, updated := oldPriority, newPriority
		if err := s.history.Append(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ActorID:     actor.ID,
			Action:      domain.HistoryActionPriorityChange,
			OldPriority: &old,
			NewPriority: &updated,
			Comment:     comment,
		}); err != nil {
			return err
		}
		if err := s.appendComment(ctx, actor, ticket.ID, comment); err != nil {
			return err
		}
		_, err = s.notifier.Dispatch(ctx, TicketEvent{
			Type:        domain.NotificationPriorityChange,
			Ticket:      ticket,
			Actor:       actor,
			OldPriority: oldPriority,
			NewPriority: newPriority,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// AssignTicket delegates a ticket to a disposisi staff member. Admin only.
// Assigning an open ticket advances it to in_progress; the advance gets its
// own history entry so both facts stay reconstructible from the ledger.
func (s *LifecycleService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, assigneeID, comment string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may assign tickets")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleDisposisi {
		return nil, apperrors.NewValidationError("assignee must hold the disposisi role", map[string]any{"user_id": assigneeID})
	}

	var ticket *domain.Ticket
	var statusAdvanced bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		oldAssignee := ticket.AssignedTo
		ticket.AssignedTo = &assignee.ID
		oldStatus := ticket.Status
		if ticket.Status == domain.TicketStatusOpen {
			ticket.Status = domain.TicketStatusInProgress
			statusAdvanced = true
		}
		clearOppositeReadFlag(ticket, actor.Role)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.history.Append(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ActorID:     actor.ID,
			Action:      domain.HistoryActionAssignment,
			OldAssignee: oldAssignee,
			NewAssignee: ticket.AssignedTo,
			Comment:     comment,
		}); err != nil {
			return err
		}
		if statusAdvanced {
			old, updated := oldStatus, ticket.Status
			if err := s.history.Append(ctx, &domain.TicketHistory{
				TicketID:  ticket.ID,
				ActorID:   actor.ID,
				Action:    domain.HistoryActionStatusChange,
				OldStatus: &old,
				NewStatus: &updated,
			}); err != nil {
				return err
			}
		}
		if err := s.appendComment(ctx, actor, ticket.ID, comment); err != nil {
			return err
		}
		_, err = s.notifier.Dispatch(ctx, TicketEvent{
			Type:   domain.NotificationAssignment,
			Ticket: ticket,
			Actor:  actor,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	payload := events.TicketAssignedPayload{AssigneeID: assignee.ID}
	if statusAdvanced {
		payload.StatusAdvance = ticket.Status
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  payload,
	})
	return ticket, nil
}

// AddFeedback records a free-text feedback entry on a ticket and notifies
// the parties dictated by the fan-out matrix.
func (s *LifecycleService) AddFeedback(ctx context.Context, actor domain.Actor, ticketID, body string) (*domain.Feedback, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("feedback body required", nil)
	}

	var entry *domain.Feedback
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if !canParticipate(actor, ticket) {
			return apperrors.NewForbidden("no access to this ticket")
		}
		entry = &domain.Feedback{
			TicketID:   ticket.ID,
			AuthorID:   actor.ID,
			AuthorRole: actor.Role,
			Body:       body,
		}
		if err := s.feedback.Create(ctx, entry); err != nil {
			return err
		}
		clearOppositeReadFlag(ticket, actor.Role)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		_, err = s.notifier.Dispatch(ctx, TicketEvent{
			Type:   domain.NotificationFeedback,
			Ticket: ticket,
			Actor:  actor,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventFeedbackAdded,
		TicketID: entry.TicketID,
		Actor:    actor,
		Payload: events.FeedbackAddedPayload{
			FeedbackID: entry.ID,
			Preview:    stringPreview(entry.Body, 120),
		},
	})
	return entry, nil
}

// RevealAnonymousToken returns the secret token of an anonymous ticket.
// Admins bypass password verification. The owner must prove identity with
// their password; a successful reveal is cached per ticket+actor so repeat
// reads in the same session skip re-verification.
func (s *LifecycleService) RevealAnonymousToken(ctx context.Context, actor domain.Actor, ticketID, password string) (string, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if !ticket.Anonymous || ticket.Token == nil {
		return "", apperrors.NewInvalidOperation("ticket is not anonymous", map[string]any{"ticket_id": ticketID})
	}

	if actor.IsAdmin() {
		s.markRevealed(ctx, ticket.ID, actor.ID)
		return *ticket.Token, nil
	}
	if !ticket.OwnedBy(actor.ID) {
		return "", apperrors.NewForbidden("only the ticket owner may reveal the token")
	}
	if s.reveal != nil {
		revealed, err := s.reveal.Revealed(ctx, ticket.ID, actor.ID)
		if err == nil && revealed {
			return *ticket.Token, nil
		}
	}
	ok, err := s.passwords.VerifyPassword(ctx, actor.ID, password)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if !ok {
		return "", apperrors.NewUnauthorized("password verification failed")
	}
	s.markRevealed(ctx, ticket.ID, actor.ID)
	return *ticket.Token, nil
}

// SoftDelete marks a ticket deleted. Allowed for admins and the owner.
// Admin deletions leave an informational notification for the owner.
func (s *LifecycleService) SoftDelete(ctx context.Context, actor domain.Actor, ticketID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Deleted() {
			return apperrors.NewInvalidOperation("ticket already deleted", map[string]any{"ticket_id": ticketID})
		}
		if !actor.IsAdmin() && !ticket.OwnedBy(actor.ID) {
			return apperrors.NewForbidden("only admins or the owner may delete a ticket")
		}
		now := time.Now()
		ticket.DeletedAt = &now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.history.Append(ctx, &domain.TicketHistory{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.HistoryActionDelete,
		}); err != nil {
			return err
		}
		if actor.IsAdmin() && ticket.OwnerID != nil && *ticket.OwnerID != actor.ID {
			return s.notifier.Notify(ctx, *ticket.OwnerID, domain.RoleStudent, actor, &ticket.ID,
				"Ticket removed", "Your ticket "+ticket.Title+" was removed by an administrator.")
		}
		return nil
	})
	return apperrors.MapError(err)
}

// Restore undoes a soft deletion. Admin only.
func (s *LifecycleService) Restore(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may restore tickets")
	}
	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.Deleted() {
			return apperrors.NewInvalidOperation("ticket is not deleted", map[string]any{"ticket_id": ticketID})
		}
		ticket.DeletedAt = nil
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.TicketHistory{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.HistoryActionRestore,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// View loads a ticket for display, records the viewer role's read flag, and
// clears matching unread notifications for the actor.
func (s *LifecycleService) View(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.lockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if !canParticipate(actor, ticket) {
			return apperrors.NewForbidden("no access to this ticket")
		}
		changed := false
		switch actor.Role {
		case domain.RoleAdmin:
			if !ticket.ReadByAdmin {
				ticket.ReadByAdmin = true
				changed = true
			}
		case domain.RoleStudent:
			if ticket.OwnedBy(actor.ID) && !ticket.ReadByStudent {
				ticket.ReadByStudent = true
				changed = true
			}
		}
		if changed {
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}
		return s.notifications.MarkReadForTicket(ctx, actor.ID, ticket.ID, time.Now())
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// History returns the audit trail of a ticket.
func (s *LifecycleService) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canParticipate(actor, ticket) {
		return nil, apperrors.NewForbidden("no access to this ticket")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *LifecycleService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
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

// lockTicket loads the row under FOR UPDATE and hides soft-deleted tickets.
func (s *LifecycleService) lockTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.Deleted() {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// appendComment stores a feedback entry when a transition carries a comment.
func (s *LifecycleService) appendComment(ctx context.Context, actor domain.Actor, ticketID, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}
	return s.feedback.Create(ctx, &domain.Feedback{
		TicketID:   ticketID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Body:       comment,
	})
}

func (s *LifecycleService) markRevealed(ctx context.Context, ticketID, actorID string) {
	if s.reveal == nil {
		return
	}
	if err := s.reveal.MarkRevealed(ctx, ticketID, actorID); err != nil {
		s.logger.Warn("reveal cache write failed", zap.Error(err), zap.String("ticket_id", ticketID))
	}
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// authorizeStatusChange enforces the transition permission matrix: admins
// may set any status, the owning student may only close, all else denied.
func authorizeStatusChange(actor domain.Actor, ticket *domain.Ticket, newStatus domain.TicketStatus) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == domain.RoleStudent && ticket.OwnedBy(actor.ID) {
		if newStatus == domain.TicketStatusClosed {
			return nil
		}
		return apperrors.NewForbidden("ticket owners may only close their tickets")
	}
	return apperrors.NewForbidden("not allowed to change ticket status")
}

// canParticipate reports whether the actor may see and comment on a ticket:
// admins always, the owner, and the assigned disposisi staff.
func canParticipate(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	if ticket.OwnedBy(actor.ID) {
		return true
	}
	return ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID
}

// clearOppositeReadFlag implements the read-tracking rule: a mutation by one
// side forces the other side to re-acknowledge the ticket. Staff actions
// (admin or disposisi) clear the student flag; student actions clear admin's.
func clearOppositeReadFlag(ticket *domain.Ticket, actorRole domain.Role) {
	if actorRole == domain.RoleStudent {
		ticket.ReadByAdmin = false
	} else {
		ticket.ReadByStudent = false
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
