package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationRepository stores notification records. Creation belongs to
// the dispatcher; the read/query path only flips read_at.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) error
	// MarkReadForTicket acknowledges every unread notification the
	// recipient has for the given ticket; used by ticket view tracking.
	MarkReadForTicket(ctx context.Context, recipientID, ticketID string, at time.Time) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, recipient_role, sender_id, ticket_id,
                                   title, message, type)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		n.RecipientID,
		n.RecipientRole,
		n.SenderID,
		n.TicketID,
		n.Title,
		n.Message,
		n.Type,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
        SELECT id, recipient_id, recipient_role, sender_id, ticket_id,
               title, message, type, read_at, created_at
        FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.RecipientRole,
			&n.SenderID,
			&n.TicketID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) error {
	const query = `
        UPDATE notifications SET read_at=$1
        WHERE id=$2 AND recipient_id=$3 AND read_at IS NULL`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, at, id, recipientID)
	return err
}

func (r *notificationRepository) MarkReadForTicket(ctx context.Context, recipientID, ticketID string, at time.Time) error {
	const query = `
        UPDATE notifications SET read_at=$1
        WHERE recipient_id=$2 AND ticket_id=$3 AND read_at IS NULL`
	_, err := querierFrom(ctx, r.pool).Exec(ctx, query, at, recipientID, ticketID)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND read_at IS NULL`
	var count int
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
