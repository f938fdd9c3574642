package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tollwatch-backend/api"
	"github.com/angelmondragon/tollwatch-backend/api/controllers"
	"github.com/angelmondragon/tollwatch-backend/api/routes"
	"github.com/angelmondragon/tollwatch-backend/internal/accounts"
	"github.com/angelmondragon/tollwatch-backend/internal/alerts"
	"github.com/angelmondragon/tollwatch-backend/internal/analytics"
	"github.com/angelmondragon/tollwatch-backend/internal/channels"
	"github.com/angelmondragon/tollwatch-backend/internal/consumers/events"
	"github.com/angelmondragon/tollwatch-backend/internal/notifications"
	"github.com/angelmondragon/tollwatch-backend/internal/tollplazas"
	"github.com/angelmondragon/tollwatch-backend/pkg/bigquery"
	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/instance"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
	"github.com/angelmondragon/tollwatch-backend/pkg/metrics"
	"github.com/angelmondragon/tollwatch-backend/pkg/migrate"
	"github.com/angelmondragon/tollwatch-backend/pkg/pubsub"
	"github.com/angelmondragon/tollwatch-backend/pkg/redis"
	"github.com/angelmondragon/tollwatch-backend/pkg/sms"
)

const serviceName = "alert-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	gateway, err := sms.NewFromConfig(ctx, cfg.SMS, logg)
	if err != nil {
		logg.Error(ctx, "failed to create sms gateway", err)
		os.Exit(1)
	}

	dispatcher, err := channels.NewDispatcher(channels.DispatcherParams{
		Logger:      logg,
		Registry:    channels.NewRedisRelay(redisClient),
		Gateway:     gateway,
		SMSTimeout:  cfg.SMS.Timeout,
		PushTimeout: cfg.Alerts.PushTimeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create channel dispatcher", err)
		os.Exit(1)
	}

	deps := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"pubsub":   pubsubClient,
	}

	var facts alerts.FactSink
	if cfg.BigQuery.Enabled() {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		recorder, err := analytics.NewRecorder(bqClient, cfg.BigQuery.DispatchFactsTable, logg)
		if err != nil {
			logg.Error(ctx, "failed to create dispatch fact recorder", err)
			os.Exit(1)
		}
		facts = recorder
		deps["bigquery"] = bqClient
	}

	accountsRepo := accounts.NewRepository(dbClient.DB())
	ledger, err := notifications.NewLedger(notifications.LedgerParams{
		DB:        dbClient,
		Repo:      notifications.NewRepository(dbClient.DB()),
		Accounts:  accountsRepo,
		Window:    notifications.NewWindow(cfg.Alerts.Cooldown),
		Retention: cfg.Alerts.Retention(),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification ledger", err)
		os.Exit(1)
	}

	scanner, err := alerts.NewScanner(alerts.ScannerParams{
		Logger:      logg,
		Accounts:    accountsRepo,
		Plazas:      tollplazas.NewRepository(dbClient.DB()),
		Ledger:      ledger,
		Dispatcher:  dispatcher,
		Metrics:     metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		Facts:       facts,
		ProximityKm: cfg.Alerts.ProximityKm,
	})
	if err != nil {
		logg.Error(ctx, "failed to create proximity scanner", err)
		os.Exit(1)
	}

	subs, err := pubsubClient.Subscribers()
	if err != nil {
		logg.Error(ctx, "pubsub subscriptions not configured", err)
		os.Exit(1)
	}

	positions, err := events.NewPositionConsumer(scanner, subs.Positions, logg)
	if err != nil {
		logg.Error(ctx, "failed to create position consumer", err)
		os.Exit(1)
	}
	accountEvents, err := events.NewAccountConsumer(scanner, subs.Accounts, logg)
	if err != nil {
		logg.Error(ctx, "failed to create account consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger:       logg,
		Dependencies: deps,
		Consumers: map[string]runner{
			"positions": positions,
			"accounts":  accountEvents,
		},
		OpsServer: api.NewOpsServer(cfg.App.MetricsAddr, routes.NewOpsRouter(cfg, logg, prometheus.DefaultGatherer, deps)),
	})
	if err != nil {
		logg.Error(ctx, "failed to create alert worker", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting alert worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "alert worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "alert worker shutting down gracefully")
}
