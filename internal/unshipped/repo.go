package unshipped

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

// Repository persists unshipped item rows. Rows are append-plus-flags: they
// are created on shortfall, then Authorized and Shipped flip over time, but
// nothing is ever deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.UnshippedItem) error
	// FindOutstanding returns the unauthorized, unshipped row matching the
	// exact order/product/quantity triple, if one exists.
	FindOutstanding(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.UnshippedItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.UnshippedItem, error)
	CountOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error)
	ListPendingAuthorization(ctx context.Context, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error)
	MarkAuthorized(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error
	MarkShipped(ctx context.Context, id uuid.UUID, at time.Time) error
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an unshipped item repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.UnshippedItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindOutstanding(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.UnshippedItem, error) {
	var item models.UnshippedItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ? AND quantity = ?", orderID, productID, quantity).
		Where("authorized = FALSE AND shipped = FALSE").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.UnshippedItem, error) {
	var items []models.UnshippedItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UnshippedItem{}).
		Where("order_id = ? AND shipped = FALSE", orderID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	return r.list(query, params)
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	return r.list(query, params)
}

func (r *repository) ListPendingAuthorization(ctx context.Context, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Where("authorized = FALSE AND shipped = FALSE")
	return r.list(query, params)
}

func (r *repository) list(query *gorm.DB, params listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	query = query.Order("created_at DESC, id DESC").Limit(params.Limit)
	if params.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.UnshippedItem
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

func (r *repository) MarkAuthorized(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UnshippedItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"authorized":    true,
			"authorized_by": actorID,
			"authorized_at": at,
		}).Error
}

func (r *repository) MarkShipped(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UnshippedItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"shipped":    true,
			"shipped_at": at,
		}).Error
}
