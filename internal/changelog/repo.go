package changelog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

// Repository persists append-only order changelog entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.OrderChangelog) error
	ListByOrder(ctx context.Context, params listParams) ([]models.OrderChangelog, *pagination.Cursor, error)
}

type listParams struct {
	OrderID uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a changelog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.OrderChangelog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByOrder(ctx context.Context, params listParams) ([]models.OrderChangelog, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("order_id = ?", params.OrderID).
		Order("created_at DESC, id DESC").
		Limit(params.Limit)

	if params.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.OrderChangelog
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	limit := params.Limit - 1
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
