package controllers

import (
	"net/http"

	"github.com/forkfleet/forkfleet-backend/api/responses"
	"github.com/forkfleet/forkfleet-backend/api/validators"
	"github.com/forkfleet/forkfleet-backend/internal/auth"
	pkgerrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
