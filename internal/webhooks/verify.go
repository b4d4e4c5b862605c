package webhooks

import (
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

// VerifyPayload checks the Stripe-Signature header against the raw body and
// returns the parsed event. Unsigned or tampered payloads never reach the
// handler.
func VerifyPayload(payload []byte, signatureHeader, signingSecret string) (stripe.Event, error) {
	if signatureHeader == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing stripe signature")
	}
	event, err := webhook.ConstructEvent(payload, signatureHeader, signingSecret)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature")
	}
	return event, nil
}
