package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lafabrik/boutique-backend/pkg/enums"
)

// Order is the storefront order aggregate. Totals are integer cents and the
// items/shipping/grand decomposition is invariant for the life of the row.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Status                enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	FulfillmentMode       enums.FulfillmentMode `gorm:"column:fulfillment_mode;type:text;not null"`
	PickupLocationID      *string               `gorm:"column:pickup_location_id"`
	CustomerEmail         string                `gorm:"column:customer_email;not null;default:''"`
	CustomerPhone         *string               `gorm:"column:customer_phone"`
	StripeSessionID       *string               `gorm:"column:stripe_session_id;uniqueIndex:uq_orders_stripe_session_id"`
	StripePaymentIntentID *string               `gorm:"column:stripe_payment_intent_id"`
	ItemsTotalCents       int                   `gorm:"column:items_total_cents;not null"`
	ShippingTotalCents    int                   `gorm:"column:shipping_total_cents;not null"`
	GrandTotalCents       int                   `gorm:"column:grand_total_cents;not null"`
	TrackingNumber        *string               `gorm:"column:tracking_number"`
	TrackingURL           *string               `gorm:"column:tracking_url"`
	PaidAt                *time.Time            `gorm:"column:paid_at"`
	FulfilledAt           *time.Time            `gorm:"column:fulfilled_at"`
	CanceledAt            *time.Time            `gorm:"column:canceled_at"`
	Lines                 []OrderLine           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PickupToken           *PickupToken          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
