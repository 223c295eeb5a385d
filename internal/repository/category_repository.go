package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository supplies the existence checks ticket creation needs.
// Category management itself is handled elsewhere.
type CategoryRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	SubCategoryExists(ctx context.Context, id, categoryID string) (bool, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`
	var exists bool
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *categoryRepository) SubCategoryExists(ctx context.Context, id, categoryID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subcategories WHERE id=$1 AND category_id=$2)`
	var exists bool
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id, categoryID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
