package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/lafabrik/boutique-backend/pkg/enums"
)

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status *enums.OrderStatus
	Mode   *enums.FulfillmentMode
	Limit  int
	Offset int
}

// PaymentCapture holds the payment-gateway facts written when an order
// transitions to paid. The customer email only becomes known at this point.
type PaymentCapture struct {
	PaymentIntentID *string
	CustomerEmail   string
	CustomerPhone   *string
	PaidAt          time.Time
}

// MarkShippedInput carries the tracking data supplied by staff.
type MarkShippedInput struct {
	OrderID        uuid.UUID
	TrackingNumber string
	TrackingURL    string
}

// OrderSummary is the admin-facing projection of an order.
type OrderSummary struct {
	ID                 uuid.UUID             `json:"id"`
	Status             enums.OrderStatus     `json:"status"`
	FulfillmentMode    enums.FulfillmentMode `json:"fulfillment_mode"`
	CustomerEmail      string                `json:"customer_email"`
	ItemsTotalCents    int                   `json:"items_total_cents"`
	ShippingTotalCents int                   `json:"shipping_total_cents"`
	GrandTotalCents    int                   `json:"grand_total_cents"`
	TrackingNumber     *string               `json:"tracking_number,omitempty"`
	TrackingURL        *string               `json:"tracking_url,omitempty"`
	PaidAt             *time.Time            `json:"paid_at,omitempty"`
	FulfilledAt        *time.Time            `json:"fulfilled_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	Lines              []LineSummary         `json:"lines,omitempty"`
}

// LineSummary is the snapshot view of one order line.
type LineSummary struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}
