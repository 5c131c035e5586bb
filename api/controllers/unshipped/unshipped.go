package unshipped

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/api/middleware"
	"github.com/warehouselabs/fulfillment-backend/api/responses"
	"github.com/warehouselabs/fulfillment-backend/api/validators"
	internalunshipped "github.com/warehouselabs/fulfillment-backend/internal/unshipped"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type authorizeRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
	Notes   *string  `json:"notes,omitempty"`
}

// ListByOrder returns the unshipped items for one order.
func ListByOrder(svc internalunshipped.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByOrder(r.Context(), orderID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListByCustomer returns the unshipped items across a customer's orders.
func ListByCustomer(svc internalunshipped.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListPending returns every item awaiting manual authorization.
func ListPending(svc internalunshipped.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPendingAuthorization(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Authorize sanctions outstanding items for follow-up fulfillment.
func Authorize(svc internalunshipped.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}

		var req authorizeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
		for _, raw := range req.ItemIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item_ids must be valid uuids"))
				return
			}
			itemIDs = append(itemIDs, id)
		}

		items, err := svc.Authorize(r.Context(), internalunshipped.AuthorizeInput{
			ItemIDs:   itemIDs,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Notes:     req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// Fulfill ships one authorized outstanding item from current stock.
func Fulfill(svc internalunshipped.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Fulfill(r.Context(), internalunshipped.FulfillInput{
			ItemID:  itemID,
			ActorID: actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
