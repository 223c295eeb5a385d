package domain

import "time"

// Feedback is a free-text comment attached to a ticket, either standalone
// or riding along with a status/priority change.
type Feedback struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Body       string
	CreatedAt  time.Time
}
