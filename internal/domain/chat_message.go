package domain

import "time"

// ChatMessage is one entry in a ticket's conversation thread.
//
// ReadBy is the set of user ids that have viewed the message. The author is
// always a member from creation: a message is read by its own sender.
type ChatMessage struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	IsSystem  bool
	ReadBy    []string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the message is soft-deleted.
func (m *ChatMessage) Deleted() bool {
	return m.DeletedAt != nil
}

// ReadByUser reports whether userID is in the read set.
func (m *ChatMessage) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatAttachment stores metadata for a file attached to a chat message.
type ChatAttachment struct {
	ID         string
	MessageID  string
	FileName   string
	StorageKey string
	CreatedAt  time.Time
}
