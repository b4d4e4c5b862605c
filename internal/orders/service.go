package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

// laPosteTrackingURL is the fallback tracking link when staff only supply a
// tracking number.
const laPosteTrackingURL = "https://www.laposte.fr/outils/suivre-vos-envois?code=%s"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emailEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error
}

// Service defines the staff-facing order operations.
type Service interface {
	List(ctx context.Context, filters ListFilters) ([]OrderSummary, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error)
	MarkShipped(ctx context.Context, input MarkShippedInput) (*OrderSummary, error)
	ResendConfirmation(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	emails emailEnqueuer
}

// NewService builds the admin order service with the required dependencies.
func NewService(repo Repository, tx txRunner, emails emailEnqueuer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emails == nil {
		return nil, fmt.Errorf("email enqueuer required")
	}
	return &service{repo: repo, tx: tx, emails: emails}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]OrderSummary, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	out := make([]OrderSummary, 0, len(rows))
	for i := range rows {
		out = append(out, Summarize(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	summary := Summarize(order)
	return &summary, nil
}

func (s *service) MarkShipped(ctx context.Context, input MarkShippedInput) (*OrderSummary, error) {
	if input.TrackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if order.FulfillmentMode != enums.FulfillmentModeDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a delivery order")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order must be paid to mark as shipped")
	}

	trackingURL := input.TrackingURL
	if trackingURL == "" {
		trackingURL = fmt.Sprintf(laPosteTrackingURL, input.TrackingNumber)
	}

	shippedAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).MarkShipped(ctx, input.OrderID, input.TrackingNumber, trackingURL, shippedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order shipped")
		}
		if rows == 0 {
			// lost the race with a concurrent transition
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order must be paid to mark as shipped")
		}
		return s.emails.Enqueue(ctx, tx, order.ID, enums.EmailTypeShippedNotification, order.CustomerEmail)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusFulfilled
	order.FulfilledAt = &shippedAt
	order.TrackingNumber = &input.TrackingNumber
	order.TrackingURL = &trackingURL
	summary := Summarize(order)
	return &summary, nil
}

func (s *service) ResendConfirmation(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	emailType := resendEmailType(order)

	// a fresh row per resend preserves the delivery history
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.emails.Enqueue(ctx, tx, order.ID, emailType, order.CustomerEmail)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// resendEmailType picks which confirmation to resend: pickup orders always get
// the pickup confirmation, shipped delivery orders the tracking email, the
// rest the plain delivery confirmation.
func resendEmailType(order *models.Order) enums.EmailType {
	switch {
	case order.FulfillmentMode == enums.FulfillmentModePickup:
		return enums.EmailTypePickupConfirmation
	case order.TrackingNumber != nil && *order.TrackingNumber != "":
		return enums.EmailTypeShippedNotification
	default:
		return enums.EmailTypeDeliveryConfirmation
	}
}

// Summarize projects an order row into its admin-facing summary.
func Summarize(order *models.Order) OrderSummary {
	lines := make([]LineSummary, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, LineSummary{
			ProductID:      line.ProductID,
			Name:           line.NameSnapshot,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return OrderSummary{
		ID:                 order.ID,
		Status:             order.Status,
		FulfillmentMode:    order.FulfillmentMode,
		CustomerEmail:      order.CustomerEmail,
		ItemsTotalCents:    order.ItemsTotalCents,
		ShippingTotalCents: order.ShippingTotalCents,
		GrandTotalCents:    order.GrandTotalCents,
		TrackingNumber:     order.TrackingNumber,
		TrackingURL:        order.TrackingURL,
		PaidAt:             order.PaidAt,
		FulfilledAt:        order.FulfilledAt,
		CreatedAt:          order.CreatedAt,
		Lines:              lines,
	}
}
