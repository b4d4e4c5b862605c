package controllers

import (
	"net/http"

	"github.com/lafabrik/boutique-backend/api/middleware"
	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/api/validators"
	checkoutsvc "github.com/lafabrik/boutique-backend/internal/checkout"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

const maxUserAgentLen = 512

// BeginCheckout creates a pending order and returns the Stripe redirect.
func BeginCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.BeginInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.ClientIP = middleware.ClientIP(r)
		payload.UserAgent = validators.SanitizeString(r.UserAgent(), maxUserAgentLen)

		result, err := svc.Begin(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
