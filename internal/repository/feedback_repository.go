package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// FeedbackRepository stores ticket feedback entries.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Feedback, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, author_id, author_role, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		f.TicketID,
		f.AuthorID,
		f.AuthorRole,
		f.Body,
	).Scan(&f.ID, &f.CreatedAt)
}

func (r *feedbackRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_role, body, created_at
        FROM ticket_feedback WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.TicketID, &f.AuthorID, &f.AuthorRole, &f.Body, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
