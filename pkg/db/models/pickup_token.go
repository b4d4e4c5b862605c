package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupToken holds the hash of a single-use pickup secret. The clear secret
// is never persisted here; only its SHA-256 digest is the lookup key. The 1:1
// unique order_id constraint is the backstop against double issuance.
type PickupToken struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_pickup_tokens_order_id"`
	TokenHash string     `gorm:"column:token_hash;not null;uniqueIndex:uq_pickup_tokens_token_hash"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	UsedBy    *string    `gorm:"column:used_by"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
