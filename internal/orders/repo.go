package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine, consent *models.ConsentRecord) (*models.Order, error) {
	conn := r.db.WithContext(ctx)

	if err := conn.Create(order).Error; err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		if err := conn.Create(&lines).Error; err != nil {
			return nil, err
		}
	}
	if consent != nil {
		consent.OrderID = order.ID
		if err := conn.Create(consent).Error; err != nil {
			return nil, err
		}
	}

	order.Lines = lines
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("PickupToken").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("PickupToken").
		Where("stripe_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Order("created_at DESC")

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Mode != nil {
		query = query.Where("fulfillment_mode = ?", *filters.Mode)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var out []models.Order
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("stripe_session_id", sessionID).Error
}

func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, capture PaymentCapture) (int64, error) {
	updates := map[string]any{
		"status":                   enums.OrderStatusPaid,
		"stripe_payment_intent_id": capture.PaymentIntentID,
		"customer_email":           capture.CustomerEmail,
		"paid_at":                  capture.PaidAt,
	}
	if capture.CustomerPhone != nil {
		updates["customer_phone"] = capture.CustomerPhone
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkCanceled(ctx context.Context, orderID uuid.UUID, canceledAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": canceledAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkFulfilled(ctx context.Context, orderID uuid.UUID, fulfilledAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPaid).
		Updates(map[string]any{
			"status":       enums.OrderStatusFulfilled,
			"fulfilled_at": fulfilledAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, trackingURL string, shippedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND fulfillment_mode = ?", orderID, enums.OrderStatusPaid, enums.FulfillmentModeDelivery).
		Updates(map[string]any{
			"status":          enums.OrderStatusFulfilled,
			"fulfilled_at":    shippedAt,
			"tracking_number": trackingNumber,
			"tracking_url":    trackingURL,
		})
	return res.RowsAffected, res.Error
}
