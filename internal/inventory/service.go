package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/internal/notifications"
	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/metrics"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockNotifier interface {
	StockAdjusted(ctx context.Context, event notifications.StockEvent)
}

// Service owns every mutation of a product's stock counter. All paths append
// exactly one change log row recording the delta actually applied.
type Service interface {
	// Apply runs a clamped stock adjustment inside the caller's transaction.
	Apply(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryChangeLog, error)
	// AdjustStock runs Apply in its own transaction and fans out the result.
	AdjustStock(ctx context.Context, input AdjustInput) (*models.InventoryChangeLog, error)
	// SetStock moves the counter to an absolute quantity (barcode "set" mode),
	// logging the computed delta.
	SetStock(ctx context.Context, input SetInput) (*models.InventoryChangeLog, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListChangeLogs(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ChangeLogPage, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier stockNotifier
	metrics  *metrics.FulfillmentMetrics
}

// AdjustInput captures a relative stock mutation.
type AdjustInput struct {
	ProductID uuid.UUID
	Delta     int
	Type      enums.InventoryChangeType
	ActorID   uuid.UUID
	Reference *string
}

// SetInput captures an absolute stock count.
type SetInput struct {
	ProductID uuid.UUID
	Quantity  int
	ActorID   uuid.UUID
	Reference *string
}

// ChangeLogPage wraps a page of change log rows and the next cursor.
type ChangeLogPage struct {
	Items  []models.InventoryChangeLog `json:"items"`
	Cursor string                      `json:"cursor"`
}

// Reconciliation compares the live counter against the sum of logged deltas.
type Reconciliation struct {
	ProductID    uuid.UUID `json:"product_id"`
	CurrentStock int       `json:"current_stock"`
	LedgerSum    int64     `json:"ledger_sum"`
	Consistent   bool      `json:"consistent"`
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier stockNotifier, m *metrics.FulfillmentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("stock notifier required")
	}
	return &service{repo: repo, tx: tx, notifier: notifier, metrics: m}, nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryChangeLog, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	product, err := repo.FindProductForUpdate(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	previous := product.CurrentStock
	next := previous + input.Delta
	if next < 0 {
		// Stock never goes negative: oversized decrements clamp to zero and
		// the log records the clamped delta, not the requested one.
		next = 0
	}

	now := time.Now().UTC()
	if err := repo.UpdateStock(ctx, product.ID, next, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product stock")
	}

	entry := &models.InventoryChangeLog{
		ProductID:        product.ID,
		UserID:           input.ActorID,
		Type:             input.Type,
		PreviousQuantity: previous,
		NewQuantity:      next,
		Delta:            next - previous,
		Reference:        input.Reference,
	}
	if err := repo.CreateChangeLog(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory change log")
	}

	s.metrics.IncStockAdjustment(input.Type.String())
	return entry, nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustInput) (*models.InventoryChangeLog, error) {
	var entry *models.InventoryChangeLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.Apply(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.StockAdjusted(ctx, stockEvent(entry))
	return entry, nil
}

func (s *service) SetStock(ctx context.Context, input SetInput) (*models.InventoryChangeLog, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	var entry *models.InventoryChangeLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		previous := product.CurrentStock
		now := time.Now().UTC()
		if err := repo.UpdateStock(ctx, product.ID, input.Quantity, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product stock")
		}

		entry = &models.InventoryChangeLog{
			ProductID:        product.ID,
			UserID:           input.ActorID,
			Type:             enums.InventoryChangeTypeStockCount,
			PreviousQuantity: previous,
			NewQuantity:      input.Quantity,
			Delta:            input.Quantity - previous,
			Reference:        input.Reference,
		}
		if err := repo.CreateChangeLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory change log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncStockAdjustment(enums.InventoryChangeTypeStockCount.String())
	s.notifier.StockAdjusted(ctx, stockEvent(entry))
	return entry, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListChangeLogs(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ChangeLogPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	query := changeLogListParams{
		ProductID: productID,
		Limit:     pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListChangeLogs(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory change logs")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ChangeLogPage{Items: rows, Cursor: cursor}, nil
}

func (s *service) Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.SumDeltas(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger deltas")
	}
	return &Reconciliation{
		ProductID:    product.ID,
		CurrentStock: product.CurrentStock,
		LedgerSum:    sum,
		Consistent:   int64(product.CurrentStock) == sum,
	}, nil
}

func validateAdjust(input AdjustInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.Delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid change type %q", input.Type))
	}
	return nil
}

func stockEvent(entry *models.InventoryChangeLog) notifications.StockEvent {
	return notifications.StockEvent{
		ProductID:        entry.ProductID,
		ChangeType:       entry.Type,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
		Delta:            entry.Delta,
	}
}
