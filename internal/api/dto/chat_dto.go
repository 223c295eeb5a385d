package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// PostMessageRequest payload.
type PostMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// AddAttachmentRequest payload.
type AddAttachmentRequest struct {
	FileName   string `json:"file_name" validate:"required"`
	StorageKey string `json:"storage_key" validate:"required"`
}

// ChatMessageResponse is one thread entry.
type ChatMessageResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	IsSystem  bool      `json:"is_system"`
	ReadBy    []string  `json:"read_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	FileName   string    `json:"file_name"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// UnreadResponse reports whether the thread holds messages the caller has
// not seen.
type UnreadResponse struct {
	Unread bool `json:"unread"`
}

// ChatMessageFromDomain maps a message for responses.
func ChatMessageFromDomain(m *domain.ChatMessage) ChatMessageResponse {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return ChatMessageResponse{
		ID:        m.ID,
		TicketID:  m.TicketID,
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		IsSystem:  m.IsSystem,
		ReadBy:    readBy,
		CreatedAt: m.CreatedAt,
	}
}

// AttachmentFromDomain maps an attachment for responses.
func AttachmentFromDomain(a *domain.ChatAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		MessageID:  a.MessageID,
		FileName:   a.FileName,
		StorageKey: a.StorageKey,
		CreatedAt:  a.CreatedAt,
	}
}
