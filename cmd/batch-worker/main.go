package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/batch"
	"github.com/forkfleet/forkfleet-backend/internal/cron"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/metrics"
	"github.com/forkfleet/forkfleet-backend/pkg/migrate"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
	"github.com/forkfleet/forkfleet-backend/pkg/redis"
)

const lockKeyFormat = "ff:batch-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "batch-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "batch-worker"

	logg = logger.New(logger.Options{
		ServiceName: "batch-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	agentsRepo := agents.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	earningsRepo := earnings.NewRepository(dbClient.DB())
	windowsRepo := batch.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	scorer := scoring.NewScorer(cfg.Dispatch)

	ordersService, err := orders.NewService(orders.Params{
		DB:       dbClient,
		Orders:   ordersRepo,
		Agents:   agentsRepo,
		Earnings: earningsRepo,
		Scorer:   scorer,
		Outbox:   outboxSvc,
		Pricing:  cfg.Pricing,
		Dispatch: cfg.Dispatch,
		Logg:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	dispatchLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("dispatch"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch lock", err)
		os.Exit(1)
	}

	batchService, err := batch.NewService(batch.Params{
		DB:       dbClient,
		Windows:  windowsRepo,
		Orders:   ordersRepo,
		Agents:   agentsRepo,
		Assigner: ordersService,
		Scorer:   scorer,
		Outbox:   outboxSvc,
		Lock:     dispatchLock,
		Metrics:  metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		Dispatch: cfg.Dispatch,
		Logg:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batch service", err)
		os.Exit(1)
	}

	cycleLock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(batch.NewJob(batchService))
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     cycleLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Dispatch.BatchInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.Service.MetricsPort, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Dispatch.BatchInterval.String(),
	})
	logg.Info(ctx, "starting batch worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "batch worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "batch worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
