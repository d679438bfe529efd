package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/refermate/partner-portal-backend/api/routes"
	"github.com/refermate/partner-portal-backend/internal/partners"
	"github.com/refermate/partner-portal-backend/internal/payouts"
	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/db"
	"github.com/refermate/partner-portal-backend/pkg/logger"
	"github.com/refermate/partner-portal-backend/pkg/metrics"
	"github.com/refermate/partner-portal-backend/pkg/migrate"
	"github.com/refermate/partner-portal-backend/pkg/outbox"
	"github.com/refermate/partner-portal-backend/pkg/provider"
	"github.com/refermate/partner-portal-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := provider.New(context.Background(), cfg.Payout, cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment provider", err)
		os.Exit(1)
	}

	payoutMetrics := metrics.NewPayoutMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	partnersRepo := partners.NewRepository(dbClient.DB())
	partnersSvc, err := partners.NewService(partners.ServiceParams{
		Config:   cfg.Payout,
		Repo:     partnersRepo,
		Provider: gateway,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create partner service", err)
		os.Exit(1)
	}

	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		Config:   cfg.Payout,
		Repo:     payouts.NewRepository(dbClient.DB()),
		Partners: partnersRepo,
		Accounts: partnersSvc,
		Provider: gateway,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Logger:   logg,
		Metrics:  payoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			PayoutsSvc:  payoutsSvc,
			PartnersSvc: partnersSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
