package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string                `json:"title" validate:"required,max=200"`
	Description   string                `json:"description" validate:"required"`
	CategoryID    string                `json:"category_id" validate:"required"`
	SubCategoryID *string               `json:"subcategory_id"`
	Priority      domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Anonymous     bool                  `json:"anonymous"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	Comment string              `json:"comment"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Comment  string                `json:"comment"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
	Comment    string `json:"comment"`
}

// RevealTokenRequest payload. Password is optional for admins.
type RevealTokenRequest struct {
	Password string `json:"password"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Body string `json:"body" validate:"required"`
}

// TicketResponse is the external view of a ticket. The anonymous token is
// never included; it only leaves through the reveal endpoint.
type TicketResponse struct {
	ID            string                `json:"id"`
	OwnerID       *string               `json:"owner_id"`
	Anonymous     bool                  `json:"anonymous"`
	CategoryID    string                `json:"category_id"`
	SubCategoryID *string               `json:"subcategory_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    *string               `json:"assigned_to"`
	ReadByAdmin   bool                  `json:"read_by_admin"`
	ReadByStudent bool                  `json:"read_by_student"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// RevealTokenResponse carries the revealed anonymous token.
type RevealTokenResponse struct {
	Token string `json:"token"`
}

// HistoryEntryResponse is one ledger row.
type HistoryEntryResponse struct {
	ID          string                 `json:"id"`
	TicketID    string                 `json:"ticket_id"`
	ActorID     string                 `json:"actor_id"`
	Action      domain.HistoryAction   `json:"action"`
	OldStatus   *domain.TicketStatus   `json:"old_status,omitempty"`
	NewStatus   *domain.TicketStatus   `json:"new_status,omitempty"`
	OldPriority *domain.TicketPriority `json:"old_priority,omitempty"`
	NewPriority *domain.TicketPriority `json:"new_priority,omitempty"`
	OldAssignee *string                `json:"old_assignee,omitempty"`
	NewAssignee *string                `json:"new_assignee,omitempty"`
	Comment     string                 `json:"comment,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// FeedbackResponse is one feedback entry.
type FeedbackResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticket_id"`
	AuthorID   string      `json:"author_id"`
	AuthorRole domain.Role `json:"author_role"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TicketFromDomain maps a ticket for responses.
func TicketFromDomain(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Anonymous:     t.Anonymous,
		CategoryID:    t.CategoryID,
		SubCategoryID: t.SubCategoryID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		AssignedTo:    t.AssignedTo,
		ReadByAdmin:   t.ReadByAdmin,
		ReadByStudent: t.ReadByStudent,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// HistoryFromDomain maps a ledger entry for responses.
func HistoryFromDomain(h *domain.TicketHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:          h.ID,
		TicketID:    h.TicketID,
		ActorID:     h.ActorID,
		Action:      h.Action,
		OldStatus:   h.OldStatus,
		NewStatus:   h.NewStatus,
		OldPriority: h.OldPriority,
		NewPriority: h.NewPriority,
		OldAssignee: h.OldAssignee,
		NewAssignee: h.NewAssignee,
		Comment:     h.Comment,
		CreatedAt:   h.CreatedAt,
	}
}

// FeedbackFromDomain maps a feedback entry for responses.
func FeedbackFromDomain(f *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:         f.ID,
		TicketID:   f.TicketID,
		AuthorID:   f.AuthorID,
		AuthorRole: f.AuthorRole,
		Body:       f.Body,
		CreatedAt:  f.CreatedAt,
	}
}
