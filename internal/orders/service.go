package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/internal/changelog"
	"github.com/warehouselabs/fulfillment-backend/internal/inventory"
	"github.com/warehouselabs/fulfillment-backend/internal/notifications"
	"github.com/warehouselabs/fulfillment-backend/internal/unshipped"
	"github.com/warehouselabs/fulfillment-backend/pkg/db"
	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
	"github.com/warehouselabs/fulfillment-backend/pkg/metrics"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAdjuster interface {
	Apply(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryChangeLog, error)
}

type shortfallLedger interface {
	RecordShortfall(ctx context.Context, tx *gorm.DB, input unshipped.ShortfallInput) (*models.UnshippedItem, bool, error)
	CountOutstanding(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error)
}

type auditAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input changelog.AppendInput) (*models.OrderChangelog, error)
}

type notifier interface {
	OrderStatusChanged(ctx context.Context, event notifications.OrderStatusEvent)
	RequiresAuthorization(ctx context.Context, event notifications.AuthorizationEvent)
	OrderDeleted(ctx context.Context, event notifications.OrderDeletedEvent)
}

// Service drives the order fulfillment state machine. All transitions run in
// a single transaction; notifications fan out only after the commit.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error)
	// Pick pulls stock for every order line and records shortfalls for
	// quantities that could not be fulfilled.
	Pick(ctx context.Context, input PickInput) (*models.Order, error)
	// Ship finalizes a picked order. When outstanding unshipped items exist
	// the result reports RequiresApproval instead of shipping.
	Ship(ctx context.Context, input ShipInput) (*ShipResult, error)
	// Cancel aborts a pending or picked order, restoring picked stock.
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	ReplaceItems(ctx context.Context, input ReplaceItemsInput) (*models.Order, error)
	Delete(ctx context.Context, input DeleteInput) error
}

type service struct {
	repo       Repository
	tx         txRunner
	inventory  stockAdjuster
	shortfalls shortfallLedger
	audit      auditAppender
	notifier   notifier
	metrics    *metrics.FulfillmentMetrics
	logger     *logger.Logger
}

// NewService wires the order service with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	inv stockAdjuster,
	shortfalls shortfallLedger,
	audit auditAppender,
	notif notifier,
	m *metrics.FulfillmentMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if shortfalls == nil {
		return nil, fmt.Errorf("shortfall ledger required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit appender required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		inventory:  inv,
		shortfalls: shortfalls,
		audit:      audit,
		notifier:   notif,
		metrics:    m,
		logger:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if strings.TrimSpace(input.OrderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:       strings.TrimSpace(input.OrderNumber),
		CustomerID:        input.CustomerID,
		Status:            enums.OrderStatusPending,
		EstimatedShipDate: input.EstimatedShipDate,
		Notes:             input.Notes,
		Items:             items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_number") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		_, err := s.audit.Append(ctx, tx, changelog.AppendInput{
			OrderID: order.ID,
			ActorID: input.ActorID,
			Action:  enums.ChangelogActionOrderCreated,
			Changes: map[string]any{
				"order_number": order.OrderNumber,
				"item_count":   len(order.Items),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error) {
	query := listParams{
		Status:     filter.Status,
		CustomerID: filter.CustomerID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Pick(ctx context.Context, input PickInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id required")
	}

	started := time.Now()
	lines := make(map[uuid.UUID]int, len(input.Lines))
	for _, line := range input.Lines {
		qty := line.Quantity
		// Zero or negative quantities are coerced to 1 rather than silently
		// dropping the line from the pick.
		if qty < 1 {
			qty = 1
		}
		lines[line.ProductID] = qty
	}

	var (
		picked         *models.Order
		previous       enums.OrderStatus
		shortfallCount int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := checkTransition(order.Status, enums.OrderStatusPicked); err != nil {
			return err
		}

		hasShortfall := false
		for i := range order.Items {
			item := &order.Items[i]
			requested := item.RequestedQuantity
			if requested < 1 {
				requested = 1
			}

			want := requested
			if qty, ok := lines[item.ProductID]; ok {
				if qty < requested {
					want = qty
				}
			}

			got := 0
			if want > 0 {
				reference := fmt.Sprintf("order:%s", order.ID)
				entry, err := s.inventory.Apply(ctx, tx, inventory.AdjustInput{
					ProductID: item.ProductID,
					Delta:     -want,
					Type:      enums.InventoryChangeTypePick,
					ActorID:   input.ActorID,
					Reference: &reference,
				})
				if err != nil {
					return err
				}
				// The applied delta is the source of truth: the counter may
				// have clamped below the requested pick.
				got = -entry.Delta
			}

			if err := repo.UpdateItem(ctx, item.ID, map[string]any{
				"picked_quantity": got,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update picked quantity")
			}
			item.PickedQuantity = got

			if got < requested {
				hasShortfall = true
				shortfallCount++
				if _, _, err := s.shortfalls.RecordShortfall(ctx, tx, unshipped.ShortfallInput{
					OrderID:    order.ID,
					ProductID:  item.ProductID,
					CustomerID: order.CustomerID,
					Quantity:   requested - got,
				}); err != nil {
					return err
				}
			}
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":                 enums.OrderStatusPicked,
			"is_partial_fulfillment": hasShortfall,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
			OrderID: order.ID,
			ActorID: input.ActorID,
			Action:  enums.ChangelogActionStatusChange,
			Changes: map[string]any{
				"status":                 enums.OrderStatusPicked,
				"is_partial_fulfillment": hasShortfall,
			},
			PreviousValues: map[string]any{"status": order.Status},
		}); err != nil {
			return err
		}

		previous = order.Status
		order.Status = enums.OrderStatusPicked
		order.IsPartialFulfillment = hasShortfall
		picked = order

		s.logTransition(ctx, order, previous)
		return nil
	})
	if err != nil {
		s.metrics.IncTransition("pick", "error")
		return nil, err
	}

	s.metrics.IncTransition("pick", "success")
	s.metrics.ObserveTransition("pick", time.Since(started))
	s.notifier.OrderStatusChanged(ctx, statusEvent(picked, previous, input.ActorID))
	if shortfallCount > 0 {
		s.notifier.RequiresAuthorization(ctx, notifications.AuthorizationEvent{
			OrderID:     picked.ID,
			OrderNumber: picked.OrderNumber,
			CustomerID:  picked.CustomerID,
			ItemCount:   shortfallCount,
			OccurredAt:  time.Now().UTC(),
		})
	}
	return picked, nil
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*ShipResult, error) {
	if input.OrderID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id required")
	}

	started := time.Now()
	var (
		result      *ShipResult
		shipped     *models.Order
		outstanding int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := checkTransition(order.Status, enums.OrderStatusShipped); err != nil {
			return err
		}

		outstanding, err = s.shortfalls.CountOutstanding(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		decision := EvaluateShipGate(outstanding, input.ApprovePartialFulfillment, input.ActorRole)
		if !decision.Allowed {
			result = &ShipResult{
				OrderID:              order.ID,
				Status:               order.Status,
				RequiresApproval:     true,
				IsPartialFulfillment: order.IsPartialFulfillment,
				UnshippedItemCount:   outstanding,
				CanApprove:           decision.CanApprove,
			}
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":           enums.OrderStatusShipped,
			"actual_ship_date": now,
		}
		if outstanding > 0 {
			updates["partial_approved"] = true
			updates["partial_approved_by"] = input.ActorID
			updates["partial_approved_at"] = now

			if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
				OrderID: order.ID,
				ActorID: input.ActorID,
				Action:  enums.ChangelogActionPartialApproval,
				Changes: map[string]any{
					"unshipped_item_count": outstanding,
					"actor_role":           input.ActorRole,
				},
			}); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
			OrderID:        order.ID,
			ActorID:        input.ActorID,
			Action:         enums.ChangelogActionStatusChange,
			Changes:        map[string]any{"status": enums.OrderStatusShipped},
			PreviousValues: map[string]any{"status": order.Status},
		}); err != nil {
			return err
		}

		previous := order.Status
		order.Status = enums.OrderStatusShipped
		order.ActualShipDate = &now
		shipped = order

		result = &ShipResult{
			OrderID:              order.ID,
			Status:               order.Status,
			IsPartialFulfillment: order.IsPartialFulfillment,
			UnshippedItemCount:   outstanding,
			CanApprove:           decision.CanApprove,
		}
		s.logTransition(ctx, order, previous)
		return nil
	})
	if err != nil {
		s.metrics.IncTransition("ship", "error")
		return nil, err
	}
	if result.RequiresApproval {
		s.metrics.IncTransition("ship", "blocked")
		return result, nil
	}

	s.metrics.IncTransition("ship", "success")
	s.metrics.ObserveTransition("ship", time.Since(started))
	s.notifier.OrderStatusChanged(ctx, statusEvent(shipped, enums.OrderStatusPicked, input.ActorID))
	if outstanding > 0 {
		s.notifier.RequiresAuthorization(ctx, notifications.AuthorizationEvent{
			OrderID:     shipped.ID,
			OrderNumber: shipped.OrderNumber,
			CustomerID:  shipped.CustomerID,
			ItemCount:   outstanding,
			OccurredAt:  time.Now().UTC(),
		})
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id required")
	}

	started := time.Now()
	var (
		cancelled *models.Order
		previous  enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := checkTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		// A picked order has already pulled stock; put it back before the
		// status flips.
		if order.Status == enums.OrderStatusPicked {
			for _, item := range order.Items {
				if item.PickedQuantity <= 0 {
					continue
				}
				reference := fmt.Sprintf("order:%s", order.ID)
				if _, err := s.inventory.Apply(ctx, tx, inventory.AdjustInput{
					ProductID: item.ProductID,
					Delta:     item.PickedQuantity,
					Type:      enums.InventoryChangeTypeCancelRestore,
					ActorID:   input.ActorID,
					Reference: &reference,
				}); err != nil {
					return err
				}
			}
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusCancelled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
			OrderID:        order.ID,
			ActorID:        input.ActorID,
			Action:         enums.ChangelogActionStatusChange,
			Changes:        map[string]any{"status": enums.OrderStatusCancelled},
			PreviousValues: map[string]any{"status": order.Status},
			Notes:          input.Reason,
		}); err != nil {
			return err
		}

		previous = order.Status
		order.Status = enums.OrderStatusCancelled
		cancelled = order

		s.logTransition(ctx, order, previous)
		return nil
	})
	if err != nil {
		s.metrics.IncTransition("cancel", "error")
		return nil, err
	}

	s.metrics.IncTransition("cancel", "success")
	s.metrics.ObserveTransition("cancel", time.Since(started))
	s.notifier.OrderStatusChanged(ctx, statusEvent(cancelled, previous, input.ActorID))
	return cancelled, nil
}

func (s *service) ReplaceItems(ctx context.Context, input ReplaceItemsInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot replace items on %s order", order.Status))
		}

		previousItems := make([]map[string]any, 0, len(order.Items))
		for _, item := range order.Items {
			previousItems = append(previousItems, map[string]any{
				"product_id": item.ProductID,
				"quantity":   item.RequestedQuantity,
			})
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.ReplaceItems(ctx, order.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
		}

		if _, err := s.audit.Append(ctx, tx, changelog.AppendInput{
			OrderID:        order.ID,
			ActorID:        input.ActorID,
			Action:         enums.ChangelogActionItemsReplaced,
			Changes:        map[string]any{"item_count": len(items)},
			PreviousValues: map[string]any{"items": previousItems},
		}); err != nil {
			return err
		}

		order.Items = items
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.OrderID == uuid.Nil || input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and actor id required")
	}
	if input.ActorRole != enums.MemberRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can delete orders")
	}

	var deleted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		// Shipped orders are permanent records.
		if order.Status == enums.OrderStatusShipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipped orders cannot be deleted").
				WithDetails(map[string]any{"current_status": order.Status})
		}

		outstanding, err := s.shortfalls.CountOutstanding(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if outstanding > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				"order has outstanding unshipped items").
				WithDetails(map[string]any{"unshipped_item_count": outstanding})
		}

		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		deleted = order
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.OrderDeleted(ctx, notifications.OrderDeletedEvent{
		OrderID:     deleted.ID,
		OrderNumber: deleted.OrderNumber,
		ActorID:     input.ActorID,
		OccurredAt:  time.Now().UTC(),
	})
	return nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) logTransition(ctx context.Context, order *models.Order, previous enums.OrderStatus) {
	ctx = s.logger.WithFields(ctx, map[string]any{
		"order_id":        order.ID.String(),
		"order_number":    order.OrderNumber,
		"previous_status": previous.String(),
		"new_status":      order.Status.String(),
	})
	s.logger.Info(ctx, "order transitioned")
}

func checkTransition(from, to enums.OrderStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition %s order to %s", from, to)).
		WithDetails(map[string]any{"current_status": from, "target_status": to})
}

func buildItems(inputs []ItemInput) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if in.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		if seen[in.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("duplicate product %s", in.ProductID))
		}
		seen[in.ProductID] = true
		items = append(items, models.OrderItem{
			ProductID:         in.ProductID,
			RequestedQuantity: in.Quantity,
		})
	}
	return items, nil
}

func statusEvent(order *models.Order, previous enums.OrderStatus, actorID uuid.UUID) notifications.OrderStatusEvent {
	return notifications.OrderStatusEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: previous,
		NewStatus:      order.Status,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
}
