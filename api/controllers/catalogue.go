package controllers

import (
	"net/http"

	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/api/validators"
	"github.com/lafabrik/boutique-backend/internal/catalogue"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

// ListProducts returns the active catalogue for the storefront.
func ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"products": catalogue.Active(),
		})
	}
}

type quoteRequest struct {
	Items           []catalogue.CartItem `json:"items" validate:"required,min=1,dive"`
	FulfillmentMode string               `json:"fulfillmentMode" validate:"required,oneof=delivery pickup"`
}

// QuoteCart re-prices a cart server-side so the storefront can show
// authoritative totals before checkout.
func QuoteCart(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseFulfillmentMode(payload.FulfillmentMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment mode"))
			return
		}

		breakdown, err := catalogue.ComputeCartTotals(payload.Items, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}
