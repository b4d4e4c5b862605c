package controllers

import (
	"net/http"

	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/api/validators"
	authsvc "github.com/lafabrik/boutique-backend/internal/auth"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

// AdminLogin exchanges staff credentials for an access token.
func AdminLogin(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.LoginInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
