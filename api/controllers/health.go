package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/forkfleet/forkfleet-backend/api/responses"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ForkFleet-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ForkFleet-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, apperrors.Wrap(apperrors.CodeTransient, err, "database is not reachable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, apperrors.Wrap(apperrors.CodeTransient, err, "redis is not reachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
