package controllers

import (
	"io"
	"net/http"

	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/internal/webhooks"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

// Stripe caps event payloads well under this; anything larger is not ours.
const maxWebhookBodyBytes = 1 << 16

// StripeWebhook verifies the event signature and hands the event to the
// webhook processor. Stripe retries on any non-2xx, so processing errors
// must surface as errors here.
func StripeWebhook(svc webhooks.Service, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook payload"))
			return
		}

		event, err := webhooks.VerifyPayload(payload, r.Header.Get("Stripe-Signature"), signingSecret)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HandleEvent(r.Context(), event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
