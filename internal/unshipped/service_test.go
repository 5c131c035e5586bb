package unshipped

import (
	"context"
	"testing"
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

type fakeRepo struct {
	createFn          func(ctx context.Context, item *models.UnshippedItem) error
	findOutstandingFn func(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.UnshippedItem, error)
	findByIDsFn       func(ctx context.Context, ids []uuid.UUID) ([]models.UnshippedItem, error)
	countFn           func(ctx context.Context, orderID uuid.UUID) (int64, error)
	markAuthorizedFn  func(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error
	markShippedFn     func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, item *models.UnshippedItem) error {
	return f.createFn(ctx, item)
}

func (f *fakeRepo) FindOutstanding(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.UnshippedItem, error) {
	return f.findOutstandingFn(ctx, orderID, productID, quantity)
}

func (f *fakeRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.UnshippedItem, error) {
	return f.findByIDsFn(ctx, ids)
}

func (f *fakeRepo) CountOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return f.countFn(ctx, orderID)
}

func (f *fakeRepo) ListByOrder(context.Context, uuid.UUID, listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepo) ListByCustomer(context.Context, uuid.UUID, listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepo) ListPendingAuthorization(context.Context, listParams) ([]models.UnshippedItem, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepo) MarkAuthorized(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error {
	return f.markAuthorizedFn(ctx, id, actorID, at)
}

func (f *fakeRepo) MarkShipped(ctx context.Context, id uuid.UUID, at time.Time) error {
	return f.markShippedFn(ctx, id, at)
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeAudit struct {
	entries []changelog.AppendInput
}

func (f *fakeAudit) Append(_ context.Context, _ *gorm.DB, input changelog.AppendInput) (*models.OrderChangelog, error) {
	f.entries = append(f.entries, input)
	return &models.OrderChangelog{OrderID: input.OrderID, Action: input.Action}, nil
}

type fakeAdjuster struct {
	applied []inventory.AdjustInput
	applyFn func(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryChangeLog, error)
}

func (f *fakeAdjuster) Apply(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryChangeLog, error) {
	f.applied = append(f.applied, input)
	if f.applyFn != nil {
		return f.applyFn(ctx, tx, input)
	}
	return &models.InventoryChangeLog{ProductID: input.ProductID, Delta: input.Delta}, nil
}

func newTestService(t *testing.T, repo *fakeRepo, audit *fakeAudit, adj *fakeAdjuster) Service {
	t.Helper()
	if audit == nil {
		audit = &fakeAudit{}
	}
	if adj == nil {
		adj = &fakeAdjuster{}
	}
	svc, err := NewService(repo, fakeTxRunner{}, audit, adj)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRecordShortfallCreatesRow(t *testing.T) {
	var created *models.UnshippedItem
	repo := &fakeRepo{
		findOutstandingFn: func(context.Context, uuid.UUID, uuid.UUID, int) (*models.UnshippedItem, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(_ context.Context, item *models.UnshippedItem) error {
			created = item
			return nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	item, isNew, err := svc.RecordShortfall(context.Background(), nil, ShortfallInput{
		OrderID:    uuid.New(),
		ProductID:  uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   4,
	})
	if err != nil {
		t.Fatalf("RecordShortfall: %v", err)
	}
	if !isNew {
		t.Fatal("expected new row")
	}
	if created == nil || created.Quantity != 4 || item.Authorized || item.Shipped {
		t.Fatalf("unexpected shortfall row %+v", created)
	}
}

func TestRecordShortfallIsIdempotentWhileOutstanding(t *testing.T) {
	existing := &models.UnshippedItem{ID: uuid.New(), Quantity: 4}
	repo := &fakeRepo{
		findOutstandingFn: func(context.Context, uuid.UUID, uuid.UUID, int) (*models.UnshippedItem, error) {
			return existing, nil
		},
		createFn: func(context.Context, *models.UnshippedItem) error {
			t.Fatal("should not create a duplicate row")
			return nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	item, isNew, err := svc.RecordShortfall(context.Background(), nil, ShortfallInput{
		OrderID:   uuid.New(),
		ProductID: uuid.New(),
		Quantity:  4,
	})
	if err != nil {
		t.Fatalf("RecordShortfall: %v", err)
	}
	if isNew {
		t.Fatal("expected existing row, not a new one")
	}
	if item.ID != existing.ID {
		t.Fatalf("expected existing row %s, got %s", existing.ID, item.ID)
	}
}

func TestRecordShortfallRejectsBadQuantity(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, nil)

	_, _, err := svc.RecordShortfall(context.Background(), nil, ShortfallInput{
		OrderID:   uuid.New(),
		ProductID: uuid.New(),
		Quantity:  0,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthorizeRequiresPrivilegedRole(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, nil, nil)

	for _, role := range []enums.MemberRole{enums.MemberRoleOperator, enums.MemberRoleViewer} {
		_, err := svc.Authorize(context.Background(), AuthorizeInput{
			ItemIDs:   []uuid.UUID{uuid.New()},
			ActorID:   uuid.New(),
			ActorRole: role,
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("role %s: expected forbidden, got %v", role, err)
		}
	}
}

func TestAuthorizeMarksItemsAndAppendsAudit(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	actorID := uuid.New()
	var marked []uuid.UUID

	repo := &fakeRepo{
		findByIDsFn: func(_ context.Context, ids []uuid.UUID) ([]models.UnshippedItem, error) {
			return []models.UnshippedItem{{ID: itemID, OrderID: orderID, ProductID: uuid.New(), Quantity: 3}}, nil
		},
		markAuthorizedFn: func(_ context.Context, id uuid.UUID, by uuid.UUID, _ time.Time) error {
			if by != actorID {
				t.Fatalf("expected authorizer %s, got %s", actorID, by)
			}
			marked = append(marked, id)
			return nil
		},
	}
	audit := &fakeAudit{}
	svc := newTestService(t, repo, audit, nil)

	items, err := svc.Authorize(context.Background(), AuthorizeInput{
		ItemIDs:   []uuid.UUID{itemID},
		ActorID:   actorID,
		ActorRole: enums.MemberRoleManager,
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	if len(marked) != 1 || marked[0] != itemID {
		t.Fatalf("expected item marked authorized, got %v", marked)
	}
	if len(items) != 1 || !items[0].Authorized || items[0].AuthorizedBy == nil {
		t.Fatalf("unexpected returned items %+v", items)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != enums.ChangelogActionUnshippedAuthorized {
		t.Fatalf("expected one authorization audit entry, got %+v", audit.entries)
	}
}

func TestAuthorizeAlreadyAuthorizedIsNoop(t *testing.T) {
	itemID := uuid.New()
	repo := &fakeRepo{
		findByIDsFn: func(context.Context, []uuid.UUID) ([]models.UnshippedItem, error) {
			return []models.UnshippedItem{{ID: itemID, Authorized: true}}, nil
		},
		markAuthorizedFn: func(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
			t.Fatal("should not re-mark an authorized item")
			return nil
		},
	}
	audit := &fakeAudit{}
	svc := newTestService(t, repo, audit, nil)

	items, err := svc.Authorize(context.Background(), AuthorizeInput{
		ItemIDs:   []uuid.UUID{itemID},
		ActorID:   uuid.New(),
		ActorRole: enums.MemberRoleAdmin,
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected item returned, got %+v", items)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entries for noop, got %+v", audit.entries)
	}
}

func TestAuthorizeMissingItems(t *testing.T) {
	repo := &fakeRepo{
		findByIDsFn: func(context.Context, []uuid.UUID) ([]models.UnshippedItem, error) {
			return nil, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Authorize(context.Background(), AuthorizeInput{
		ItemIDs:   []uuid.UUID{uuid.New()},
		ActorID:   uuid.New(),
		ActorRole: enums.MemberRoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestFulfillShipsAuthorizedItem(t *testing.T) {
	itemID := uuid.New()
	productID := uuid.New()
	var shipped []uuid.UUID

	repo := &fakeRepo{
		findByIDsFn: func(context.Context, []uuid.UUID) ([]models.UnshippedItem, error) {
			return []models.UnshippedItem{{ID: itemID, ProductID: productID, Quantity: 5, Authorized: true}}, nil
		},
		markShippedFn: func(_ context.Context, id uuid.UUID, _ time.Time) error {
			shipped = append(shipped, id)
			return nil
		},
	}
	adj := &fakeAdjuster{}
	svc := newTestService(t, repo, nil, adj)

	item, err := svc.Fulfill(context.Background(), FulfillInput{ItemID: itemID, ActorID: uuid.New()})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	if len(adj.applied) != 1 {
		t.Fatalf("expected one stock adjustment, got %d", len(adj.applied))
	}
	applied := adj.applied[0]
	if applied.Delta != -5 || applied.Type != enums.InventoryChangeTypeShortfallFulfill || applied.ProductID != productID {
		t.Fatalf("unexpected adjustment %+v", applied)
	}
	if len(shipped) != 1 || shipped[0] != itemID {
		t.Fatalf("expected item marked shipped, got %v", shipped)
	}
	if !item.Shipped || item.ShippedAt == nil {
		t.Fatalf("expected shipped item, got %+v", item)
	}
}

func TestFulfillRejectsUnauthorizedItem(t *testing.T) {
	repo := &fakeRepo{
		findByIDsFn: func(context.Context, []uuid.UUID) ([]models.UnshippedItem, error) {
			return []models.UnshippedItem{{ID: uuid.New(), Quantity: 2}}, nil
		},
	}
	adj := &fakeAdjuster{}
	svc := newTestService(t, repo, nil, adj)

	_, err := svc.Fulfill(context.Background(), FulfillInput{ItemID: uuid.New(), ActorID: uuid.New()})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(adj.applied) != 0 {
		t.Fatalf("expected no stock adjustment, got %+v", adj.applied)
	}
}

func TestCountOutstanding(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeRepo{
		countFn: func(_ context.Context, id uuid.UUID) (int64, error) {
			if id != orderID {
				t.Fatalf("unexpected order id %s", id)
			}
			return 3, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	count, err := svc.CountOutstanding(context.Background(), nil, orderID)
	if err != nil {
		t.Fatalf("CountOutstanding: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}
