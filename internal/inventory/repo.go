package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

// Repository persists products and their append-only change log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	UpdateStock(ctx context.Context, productID uuid.UUID, quantity int, at time.Time) error
	CreateChangeLog(ctx context.Context, entry *models.InventoryChangeLog) error
	ListChangeLogs(ctx context.Context, params changeLogListParams) ([]models.InventoryChangeLog, *pagination.Cursor, error)
	SumDeltas(ctx context.Context, productID uuid.UUID) (int64, error)
}

type changeLogListParams struct {
	ProductID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductForUpdate takes a row lock so concurrent stock mutations on the
// same product serialize instead of racing the read-modify-write.
func (r *repository) FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) UpdateStock(ctx context.Context, productID uuid.UUID, quantity int, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"current_stock":     quantity,
			"last_stock_update": at,
		}).Error
}

func (r *repository) CreateChangeLog(ctx context.Context, entry *models.InventoryChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListChangeLogs(ctx context.Context, params changeLogListParams) ([]models.InventoryChangeLog, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", params.ProductID).
		Order("created_at DESC, id DESC").
		Limit(params.Limit)

	if params.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.InventoryChangeLog
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

func (r *repository) SumDeltas(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryChangeLog{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
