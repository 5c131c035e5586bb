package inventory

import (
	"net/http"
	"strings"

	"github.com/warehouselabs/fulfillment-backend/api/middleware"
	"github.com/warehouselabs/fulfillment-backend/api/responses"
	"github.com/warehouselabs/fulfillment-backend/api/validators"
	internalinventory "github.com/warehouselabs/fulfillment-backend/internal/inventory"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
	"github.com/warehouselabs/fulfillment-backend/pkg/pagination"
)

type adjustRequest struct {
	Delta     int     `json:"delta" validate:"required"`
	Reference *string `json:"reference,omitempty"`
}

type setRequest struct {
	Quantity  int     `json:"quantity" validate:"min=0"`
	Reference *string `json:"reference,omitempty"`
}

// GetProduct returns the live stock counter for one product.
func GetProduct(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// Adjust applies a relative stock change (receiving, damage, correction).
func Adjust(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.AdjustStock(r.Context(), internalinventory.AdjustInput{
			ProductID: productID,
			Delta:     req.Delta,
			Type:      enums.InventoryChangeTypeManualAdjustment,
			ActorID:   actor.ID,
			Reference: req.Reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// Set records an absolute stock count from a physical count.
func Set(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SetStock(r.Context(), internalinventory.SetInput{
			ProductID: productID,
			Quantity:  req.Quantity,
			ActorID:   actor.ID,
			Reference: req.Reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ChangeLogs returns the product's stock mutation history.
func ChangeLogs(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListChangeLogs(r.Context(), productID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Reconcile compares the counter against the summed change log.
func Reconcile(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Reconcile(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}
