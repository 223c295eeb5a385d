package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ChatAttachmentRepository stores metadata for chat message attachments.
// The file bytes themselves live in external storage.
type ChatAttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.ChatAttachment) error
	GetByID(ctx context.Context, id string) (*domain.ChatAttachment, error)
	ListByMessage(ctx context.Context, messageID string) ([]domain.ChatAttachment, error)
	Delete(ctx context.Context, id string) error
}

type chatAttachmentRepository struct {
	pool *pgxpool.Pool
}

// NewChatAttachmentRepository builds repository.
func NewChatAttachmentRepository(pool *pgxpool.Pool) ChatAttachmentRepository {
	return &chatAttachmentRepository{pool: pool}
}

func (r *chatAttachmentRepository) Create(ctx context.Context, a *domain.ChatAttachment) error {
	const query = `
        INSERT INTO chat_attachments (message_id, file_name, storage_key)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		a.MessageID,
		a.FileName,
		a.StorageKey,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *chatAttachmentRepository) GetByID(ctx context.Context, id string) (*domain.ChatAttachment, error) {
	const query = `
        SELECT id, message_id, file_name, storage_key, created_at
        FROM chat_attachments WHERE id=$1`
	var a domain.ChatAttachment
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.MessageID,
		&a.FileName,
		&a.StorageKey,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *chatAttachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.ChatAttachment, error) {
	const query = `
        SELECT id, message_id, file_name, storage_key, created_at
        FROM chat_attachments WHERE message_id=$1 ORDER BY created_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatAttachment
	for rows.Next() {
		var a domain.ChatAttachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.FileName, &a.StorageKey, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *chatAttachmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM chat_attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
