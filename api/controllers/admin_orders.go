package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lafabrik/boutique-backend/api/responses"
	"github.com/lafabrik/boutique-backend/api/validators"
	ordersvc "github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
)

// AdminListOrders returns order summaries filtered by status and mode.
func AdminListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filters := ordersvc.ListFilters{}

		rawStatus, err := validators.ParseQueryString(r, "status", "pending", "paid", "fulfilled", "canceled", "refunded")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rawStatus != "" {
			status := enums.OrderStatus(rawStatus)
			filters.Status = &status
		}

		rawMode, err := validators.ParseQueryString(r, "mode", "delivery", "pickup")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rawMode != "" {
			mode := enums.FulfillmentMode(rawMode)
			filters.Mode = &mode
		}

		if filters.Limit, err = validators.ParseQueryInt(r, "limit", defaultOrderPageSize, 1, maxOrderPageSize); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.Offset, err = validators.ParseQueryInt(r, "offset", 0, 0, 1<<30); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": orders})
	}
}

// AdminGetOrder returns one order with its line snapshots.
func AdminGetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type markShippedRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=64"`
	TrackingURL    string `json:"trackingUrl" validate:"omitempty,url,max=512"`
}

// AdminMarkShipped transitions a paid delivery order to fulfilled and
// queues the shipping notification.
func AdminMarkShipped(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload markShippedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkShipped(r.Context(), ordersvc.MarkShippedInput{
			OrderID:        orderID,
			TrackingNumber: validators.SanitizeString(payload.TrackingNumber, 64),
			TrackingURL:    validators.SanitizeString(payload.TrackingURL, 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// AdminResendEmail re-queues the confirmation email for a paid order.
func AdminResendEmail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResendConfirmation(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
