package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ChatMessageRepository persists ticket chat messages and their read sets.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *domain.ChatMessage) error
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error)
	// AddReader unions userID into the message's read set. Safe to run
	// concurrently across users: the guard clause makes it idempotent.
	AddReader(ctx context.Context, messageID, userID string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository builds repository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

func (r *chatMessageRepository) Create(ctx context.Context, m *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (ticket_id, author_id, body, is_system, read_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		m.TicketID,
		m.AuthorID,
		m.Body,
		m.IsSystem,
		m.ReadBy,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *chatMessageRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, is_system, read_by, created_at, deleted_at
        FROM chat_messages WHERE id=$1`
	var m domain.ChatMessage
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.TicketID,
		&m.AuthorID,
		&m.Body,
		&m.IsSystem,
		&m.ReadBy,
		&m.CreatedAt,
		&m.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *chatMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, is_system, read_by, created_at, deleted_at
        FROM chat_messages WHERE ticket_id=$1 AND deleted_at IS NULL
        ORDER BY created_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(
			&m.ID,
			&m.TicketID,
			&m.AuthorID,
			&m.Body,
			&m.IsSystem,
			&m.ReadBy,
			&m.CreatedAt,
			&m.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *chatMessageRepository) AddReader(ctx context.Context, messageID, userID string) error {
	const query = `
        UPDATE chat_messages SET read_by = array_append(read_by, $2)
        WHERE id=$1 AND NOT (read_by @> ARRAY[$2])`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, messageID, userID)
	return err
}

func (r *chatMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE chat_messages SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
