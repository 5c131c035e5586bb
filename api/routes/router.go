package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warehouselabs/fulfillment-backend/api/controllers"
	inventorycontrollers "github.com/warehouselabs/fulfillment-backend/api/controllers/inventory"
	ordercontrollers "github.com/warehouselabs/fulfillment-backend/api/controllers/orders"
	unshippedcontrollers "github.com/warehouselabs/fulfillment-backend/api/controllers/unshipped"
	"github.com/warehouselabs/fulfillment-backend/api/middleware"
	"github.com/warehouselabs/fulfillment-backend/internal/changelog"
	"github.com/warehouselabs/fulfillment-backend/internal/inventory"
	"github.com/warehouselabs/fulfillment-backend/internal/orders"
	"github.com/warehouselabs/fulfillment-backend/internal/unshipped"
	"github.com/warehouselabs/fulfillment-backend/pkg/config"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Broadcast pinger
	Registry  *prometheus.Registry

	Orders    orders.Service
	Inventory inventory.Service
	Unshipped unshipped.Service
	Changelog changelog.Service
}

// NewRouter assembles the HTTP surface of the fulfillment engine.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Broadcast))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireIdentity(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/{orderID}", ordercontrollers.Detail(deps.Orders, logg))
			r.Get("/{orderID}/history", ordercontrollers.History(deps.Changelog, logg))
			r.Put("/{orderID}/items", ordercontrollers.ReplaceItems(deps.Orders, logg))
			r.Post("/{orderID}/pick", ordercontrollers.Pick(deps.Orders, logg))
			r.Post("/{orderID}/ship", ordercontrollers.Ship(deps.Orders, logg))
			r.Post("/{orderID}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleAdmin)).
				Delete("/{orderID}", ordercontrollers.Delete(deps.Orders, logg))
			r.Get("/{orderID}/unshipped", unshippedcontrollers.ListByOrder(deps.Unshipped, logg))
		})

		r.Route("/unshipped", func(r chi.Router) {
			r.Get("/pending", unshippedcontrollers.ListPending(deps.Unshipped, logg))
			r.Get("/customers/{customerID}", unshippedcontrollers.ListByCustomer(deps.Unshipped, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleAdmin, enums.MemberRoleManager)).
				Post("/authorize", unshippedcontrollers.Authorize(deps.Unshipped, logg))
			r.Post("/{itemID}/fulfill", unshippedcontrollers.Fulfill(deps.Unshipped, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/{productID}", inventorycontrollers.GetProduct(deps.Inventory, logg))
			r.Get("/{productID}/changelog", inventorycontrollers.ChangeLogs(deps.Inventory, logg))
			r.Get("/{productID}/reconcile", inventorycontrollers.Reconcile(deps.Inventory, logg))
			r.Post("/{productID}/adjust", inventorycontrollers.Adjust(deps.Inventory, logg))
			r.Post("/{productID}/set", inventorycontrollers.Set(deps.Inventory, logg))
		})
	})

	return r
}
