package controllers

import (
	"net/http"
	"strings"

	"github.com/forkfleet/forkfleet-backend/api/responses"
	"github.com/forkfleet/forkfleet-backend/api/validators"
	"github.com/forkfleet/forkfleet-backend/internal/batch"
	"github.com/forkfleet/forkfleet-backend/internal/payouts"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
)

// AdminBatchStats returns the live dispatch queue snapshot.
func AdminBatchStats(svc batch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CurrentStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminBatchList pages through past batch windows, newest first.
func AdminBatchList(svc batch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListWindows(r.Context(), pagination.Params{
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

// AdminBatchTrigger runs an assignment pass immediately.
func AdminBatchTrigger(svc batch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Run(r.Context(), batch.TriggerManual)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.Window)
	}
}

// AdminFinalizePayments settles every open guarantee period.
func AdminFinalizePayments(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Finalize(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
