package changelog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

// Service appends and reads the per-order audit trail.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderChangelog, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo Repository
}

// AppendInput captures one audit entry. Changes and PreviousValues may be any
// JSON-serializable value.
type AppendInput struct {
	OrderID        uuid.UUID
	ActorID        uuid.UUID
	Action         enums.ChangelogAction
	Changes        any
	PreviousValues any
	Notes          *string
}

// ListResult wraps a changelog page and the cursor for the next one.
type ListResult struct {
	Items  []models.OrderChangelog `json:"items"`
	Cursor string                  `json:"cursor"`
}

// NewService wires a changelog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("changelog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderChangelog, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid changelog action %q", input.Action))
	}

	changes, err := marshalField(input.Changes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode changes")
	}
	previous, err := marshalField(input.PreviousValues)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode previous values")
	}

	entry := &models.OrderChangelog{
		OrderID:        input.OrderID,
		UserID:         input.ActorID,
		Action:         input.Action,
		Changes:        changes,
		PreviousValues: previous,
		Notes:          input.Notes,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order changelog")
	}
	return entry, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	query := listParams{
		OrderID: orderID,
		Limit:   pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByOrder(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order changelogs")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func marshalField(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}
