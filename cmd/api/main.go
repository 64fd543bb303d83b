package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/forkfleet/forkfleet-backend/api/routes"
	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/auth"
	"github.com/forkfleet/forkfleet-backend/internal/batch"
	"github.com/forkfleet/forkfleet-backend/internal/cron"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/payouts"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	"github.com/forkfleet/forkfleet-backend/internal/users"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/metrics"
	"github.com/forkfleet/forkfleet-backend/pkg/migrate"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
	"github.com/forkfleet/forkfleet-backend/pkg/redis"
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

	usersRepo := users.NewRepository(dbClient.DB())
	agentsRepo := agents.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	earningsRepo := earnings.NewRepository(dbClient.DB())
	windowsRepo := batch.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	scorer := scoring.NewScorer(cfg.Dispatch)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  usersRepo,
		AgentRepo: agentsRepo,
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

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

	earningsService, err := earnings.NewService(earningsRepo, agentsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
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

	settlementLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("settlement"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement lock", err)
		os.Exit(1)
	}

	payoutsService, err := payouts.NewService(payouts.Params{
		DB:       dbClient,
		Agents:   agentsRepo,
		Earnings: earningsRepo,
		Outbox:   outboxSvc,
		Lock:     settlementLock,
		Logg:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			ordersService,
			earningsService,
			batchService,
			payoutsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
