package unshipped

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/internal/changelog"
	"github.com/warehouselabs/fulfillment-backend/internal/inventory"
	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input changelog.AppendInput) (*models.OrderChangelog, error)
}

type stockAdjuster interface {
	Apply(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryChangeLog, error)
}

// Service tracks quantities that were ordered but never picked. Shortfalls are
// recorded during the pick pass, authorized by a manager, and finally shipped
// in a follow-up fulfillment.
type Service interface {
	// RecordShortfall appends a shortfall row inside the caller's transaction.
	// Recording the same (order, product, quantity) triple twice while the
	// first row is still outstanding is a no-op returning the existing row.
	RecordShortfall(ctx context.Context, tx *gorm.DB, input ShortfallInput) (*models.UnshippedItem, bool, error)
	Authorize(ctx context.Context, input AuthorizeInput) ([]models.UnshippedItem, error)
	// Fulfill ships an authorized outstanding item, pulling the quantity from
	// current stock.
	Fulfill(ctx context.Context, input FulfillInput) (*models.UnshippedItem, error)
	CountOutstanding(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListPendingAuthorization(ctx context.Context, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	audit     auditAppender
	inventory stockAdjuster
}

// ShortfallInput describes one unfulfilled order line quantity.
type ShortfallInput struct {
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	CustomerID uuid.UUID
	Quantity   int
	Notes      *string
}

// AuthorizeInput sanctions one or more outstanding rows.
type AuthorizeInput struct {
	ItemIDs   []uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.MemberRole
	Notes     *string
}

// FulfillInput ships a previously authorized row.
type FulfillInput struct {
	ItemID  uuid.UUID
	ActorID uuid.UUID
}

// ListResult wraps a page of unshipped items and the next cursor.
type ListResult struct {
	Items  []models.UnshippedItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

// NewService wires the unshipped item service.
func NewService(repo Repository, tx txRunner, audit auditAppender, inv stockAdjuster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unshipped repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit appender required")
	}
	if inv == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	return &service{repo: repo, tx: tx, audit: audit, inventory: inv}, nil
}

func (s *service) RecordShortfall(ctx context.Context, tx *gorm.DB, input ShortfallInput) (*models.UnshippedItem, bool, error) {
	if input.OrderID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "order id and product id required")
	}
	if input.Quantity <= 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "shortfall quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindOutstanding(ctx, input.OrderID, input.ProductID, input.Quantity)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up outstanding shortfall")
	}

	item := &models.UnshippedItem{
		OrderID:    input.OrderID,
		ProductID:  input.ProductID,
		CustomerID: input.CustomerID,
		Quantity:   input.Quantity,
		Notes:      input.Notes,
	}
	if err := repo.Create(ctx, item); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record shortfall")
	}
	return item, true, nil
}

func (s *service) Authorize(ctx context.Context, input AuthorizeInput) ([]models.UnshippedItem, error) {
	if len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !input.ActorRole.CanApprovePartial() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot authorize unshipped items")
	}

	var authorized []models.UnshippedItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.FindByIDs(ctx, input.ItemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unshipped items")
		}
		if len(items) != len(input.ItemIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more unshipped items not found")
		}

		now := time.Now().UTC()
		for _, item := range items {
			if item.Shipped {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("unshipped item %s already shipped", item.ID))
			}
			if item.Authorized {
				// Re-authorizing is a no-op, not an error.
				authorized = append(authorized, item)
				continue
			}

			if err := repo.MarkAuthorized(ctx, item.ID, input.ActorID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark item authorized")
			}
			if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
				OrderID: item.OrderID,
				ActorID: input.ActorID,
				Action:  enums.ChangelogActionUnshippedAuthorized,
				Changes: map[string]any{
					"unshipped_item_id": item.ID,
					"product_id":        item.ProductID,
					"quantity":          item.Quantity,
					"actor_role":        input.ActorRole,
				},
				Notes: input.Notes,
			}); err != nil {
				return err
			}

			item.Authorized = true
			item.AuthorizedBy = &input.ActorID
			item.AuthorizedAt = &now
			authorized = append(authorized, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return authorized, nil
}

func (s *service) Fulfill(ctx context.Context, input FulfillInput) (*models.UnshippedItem, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	var fulfilled *models.UnshippedItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.FindByIDs(ctx, []uuid.UUID{input.ItemID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unshipped item")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unshipped item not found")
		}
		item := items[0]

		if item.Shipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unshipped item already shipped")
		}
		if !item.Authorized {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unshipped item not authorized")
		}

		reference := fmt.Sprintf("unshipped:%s", item.ID)
		if _, err := s.inventory.Apply(ctx, tx, inventory.AdjustInput{
			ProductID: item.ProductID,
			Delta:     -item.Quantity,
			Type:      enums.InventoryChangeTypeShortfallFulfill,
			ActorID:   input.ActorID,
			Reference: &reference,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := repo.MarkShipped(ctx, item.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark item shipped")
		}

		item.Shipped = true
		item.ShippedAt = &now
		fulfilled = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fulfilled, nil
}

func (s *service) CountOutstanding(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	count, err := s.repo.WithTx(tx).CountOutstandingByOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count outstanding items")
	}
	return int(count), nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.page(params, func(query listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
		return s.repo.ListByOrder(ctx, orderID, query)
	})
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	return s.page(params, func(query listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
		return s.repo.ListByCustomer(ctx, customerID, query)
	})
}

func (s *service) ListPendingAuthorization(ctx context.Context, params pagination.Params) (*ListResult, error) {
	return s.page(params, func(query listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
		return s.repo.ListPendingAuthorization(ctx, query)
	})
}

func (s *service) page(params pagination.Params, fetch func(listParams) ([]models.UnshippedItem, *pagination.Cursor, error)) (*ListResult, error) {
	query := listParams{Limit: pagination.LimitWithBuffer(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := fetch(query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unshipped items")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
