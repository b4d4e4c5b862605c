package controllers

import (
	"net/http"

	"github.com/lafabrik/boutique-backend/api/middleware"
	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/api/validators"
	pickupsvc "github.com/lafabrik/boutique-backend/internal/pickup"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

type redeemRequest struct {
	Secret string `json:"secret" validate:"required,min=8,max=128"`
}

// AdminRedeemPickup burns a scanned pickup secret and fulfills the order.
func AdminRedeemPickup(svc pickupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		var payload redeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Redeem(r.Context(), pickupsvc.RedeemInput{
			Secret:     validators.SanitizeString(payload.Secret, 128),
			StaffEmail: middleware.StaffEmailFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
