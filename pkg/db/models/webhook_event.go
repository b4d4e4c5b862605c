package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records a processed payment-gateway event id. Rows are
// write-once; the unique event_id makes webhook redelivery a no-op.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     string    `gorm:"column:event_id;not null;uniqueIndex:uq_webhook_events_event_id"`
	EventType   string    `gorm:"column:event_type;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
