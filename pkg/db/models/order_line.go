package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine captures the snapshot of a catalogue product at order creation.
// Later catalogue edits never change historical totals.
type OrderLine struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID            string    `gorm:"column:product_id;not null"`
	Qty                  int       `gorm:"column:qty;not null"`
	UnitPriceCents       int       `gorm:"column:unit_price_cents;not null"`
	ShippingCentsPerUnit int       `gorm:"column:shipping_cents_per_unit;not null"`
	NameSnapshot         string    `gorm:"column:name_snapshot;not null"`
	ImageSnapshot        *string   `gorm:"column:image_snapshot"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
}
