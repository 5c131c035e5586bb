package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/api/middleware"
	"github.com/warehouselabs/fulfillment-backend/api/responses"
	"github.com/warehouselabs/fulfillment-backend/api/validators"
	"github.com/warehouselabs/fulfillment-backend/internal/changelog"
	internalorders "github.com/warehouselabs/fulfillment-backend/internal/orders"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type createRequest struct {
	OrderNumber       string        `json:"order_number" validate:"required"`
	CustomerID        string        `json:"customer_id" validate:"required,uuid"`
	Items             []itemRequest `json:"items" validate:"required,min=1,dive"`
	EstimatedShipDate *time.Time    `json:"estimated_ship_date,omitempty"`
	Notes             *string       `json:"notes,omitempty"`
}

type itemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type pickRequest struct {
	Lines []pickLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

type pickLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	// Zero and negative quantities are accepted; the service coerces them
	// to the documented floor of 1.
	Quantity int `json:"quantity"`
}

type shipRequest struct {
	ApprovePartialFulfillment bool `json:"approve_partial_fulfillment"`
}

type cancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type replaceItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

// Create opens a new pending order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid uuid"))
			return
		}
		items, err := parseItems(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			OrderNumber:       req.OrderNumber,
			CustomerID:        customerID,
			Items:             items,
			EstimatedShipDate: req.EstimatedShipDate,
			Notes:             req.Notes,
			ActorID:           actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order with its items.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List returns a cursor-paginated order page.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid uuid"))
				return
			}
			filter.CustomerID = &customerID
		}

		list, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Pick pulls stock for the order.
func Pick(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req pickRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines := make([]internalorders.PickLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			productID, err := uuid.Parse(line.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "line product_id must be a valid uuid"))
				return
			}
			lines = append(lines, internalorders.PickLine{ProductID: productID, Quantity: line.Quantity})
		}

		order, err := svc.Pick(r.Context(), internalorders.PickInput{
			OrderID: orderID,
			ActorID: actor.ID,
			Lines:   lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Ship finalizes a picked order or reports the approval gate.
func Ship(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shipRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Ship(r.Context(), internalorders.ShipInput{
			OrderID:                   orderID,
			ActorID:                   actor.ID,
			ActorRole:                 actor.Role,
			ApprovePartialFulfillment: req.ApprovePartialFulfillment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// A blocked partial fulfillment is a successful response carrying the
		// gate decision, not an HTTP error.
		responses.WriteSuccess(w, result)
	}
}

// Cancel aborts a pending or picked order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			ActorID: actor.ID,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ReplaceItems swaps the item set of a pending order.
func ReplaceItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req replaceItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := parseItems(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ReplaceItems(r.Context(), internalorders.ReplaceItemsInput{
			OrderID: orderID,
			ActorID: actor.ID,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Delete permanently removes an order.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), internalorders.DeleteInput{
			OrderID:   orderID,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// History returns the order's audit trail.
func History(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByOrder(r.Context(), orderID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseItems(reqs []itemRequest) ([]internalorders.ItemInput, error) {
	items := make([]internalorders.ItemInput, 0, len(reqs))
	for _, req := range reqs {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product_id must be a valid uuid")
		}
		items = append(items, internalorders.ItemInput{ProductID: productID, Quantity: req.Quantity})
	}
	return items, nil
}
