package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/warehouselabs/fulfillment-backend/api/routes"
	"github.com/warehouselabs/fulfillment-backend/internal/changelog"
	"github.com/warehouselabs/fulfillment-backend/internal/inventory"
	"github.com/warehouselabs/fulfillment-backend/internal/notifications"
	"github.com/warehouselabs/fulfillment-backend/internal/orders"
	"github.com/warehouselabs/fulfillment-backend/internal/unshipped"
	"github.com/warehouselabs/fulfillment-backend/pkg/broadcast"
	"github.com/warehouselabs/fulfillment-backend/pkg/config"
	"github.com/warehouselabs/fulfillment-backend/pkg/db"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
	"github.com/warehouselabs/fulfillment-backend/pkg/metrics"
	"github.com/warehouselabs/fulfillment-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	publisher, err := broadcast.NewRedisPublisher(ctx, cfg.Redis, cfg.Broadcast.Channel, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap broadcast publisher", err)
		os.Exit(1)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(ctx, "error closing broadcast publisher", err)
		}
	}()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewFulfillmentMetrics(registry)

	emitter, err := notifications.NewEmitter(publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create emitter", err)
		os.Exit(1)
	}

	changelogSvc, err := changelog.NewService(changelog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create changelog service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		dbClient,
		emitter,
		engineMetrics,
	)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	unshippedSvc, err := unshipped.NewService(
		unshipped.NewRepository(dbClient.DB()),
		dbClient,
		changelogSvc,
		inventorySvc,
	)
	if err != nil {
		logg.Error(ctx, "failed to create unshipped service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		inventorySvc,
		unshippedSvc,
		changelogSvc,
		emitter,
		engineMetrics,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Broadcast: publisher,
			Registry:  registry,
			Orders:    ordersSvc,
			Inventory: inventorySvc,
			Unshipped: unshippedSvc,
			Changelog: changelogSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
