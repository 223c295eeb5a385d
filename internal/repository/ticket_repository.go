package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the ticket row for the duration of the
	// surrounding transaction, serializing concurrent lifecycle changes.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	GetByToken(ctx context.Context, token string) (*domain.Ticket, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, anonymous, token, category_id, subcategory_id,
       title, description, status, priority, assigned_to,
       read_by_admin, read_by_student, created_at, updated_at, deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_id, anonymous, token, category_id, subcategory_id,
                             title, description, status, priority, assigned_to,
                             read_by_admin, read_by_student)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Anonymous,
		ticket.Token,
		ticket.CategoryID,
		ticket.SubCategoryID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.ReadByAdmin,
		ticket.ReadByStudent,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assigned_to=$3,
               read_by_admin=$4, read_by_student=$5, deleted_at=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.ReadByAdmin,
		ticket.ReadByStudent,
		ticket.DeletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByToken(ctx context.Context, token string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *ticketRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tickets WHERE token=$1)`
	var exists bool
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
              FROM tickets WHERE owner_id=$1 AND deleted_at IS NULL
              ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(querierFrom(ctx, r.pool).QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Anonymous,
		&ticket.Token,
		&ticket.CategoryID,
		&ticket.SubCategoryID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.ReadByAdmin,
		&ticket.ReadByStudent,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.Anonymous,
			&ticket.Token,
			&ticket.CategoryID,
			&ticket.SubCategoryID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.AssignedTo,
			&ticket.ReadByAdmin,
			&ticket.ReadByStudent,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
