package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forkfleet/forkfleet-backend/api/controllers"
	"github.com/forkfleet/forkfleet-backend/api/middleware"
	"github.com/forkfleet/forkfleet-backend/internal/auth"
	"github.com/forkfleet/forkfleet-backend/internal/batch"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/payouts"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	authService auth.Service,
	ordersService orders.Service,
	earningsService earnings.Service,
	batchService batch.Service,
	payoutsService payouts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole("agent", logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AgentAvailableOrders(ordersService, logg))
				r.Post("/{orderId}/accept", controllers.AgentAcceptOrder(ordersService, logg))
				r.Post("/{orderId}/pickup", controllers.AgentPickupOrder(ordersService, logg))
				r.Post("/{orderId}/transit", controllers.AgentTransitOrder(ordersService, logg))
				r.Post("/{orderId}/deliver", controllers.AgentDeliverOrder(ordersService, logg))
			})
			r.Get("/jobs/current", controllers.AgentCurrentJob(ordersService, logg))
			r.Get("/earnings", controllers.AgentEarnings(earningsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole("customer", logg))
			r.Post("/", controllers.CustomerCreateOrder(ordersService, logg))
			r.Get("/active", controllers.CustomerActiveOrder(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.CustomerCancelOrder(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", controllers.AdminBatchList(batchService, logg))
			r.Get("/current-stats", controllers.AdminBatchStats(batchService, logg))
			r.Post("/trigger", controllers.AdminBatchTrigger(batchService, logg))
		})
		r.Post("/payments/finalize", controllers.AdminFinalizePayments(payoutsService, logg))
	})

	return r
}
