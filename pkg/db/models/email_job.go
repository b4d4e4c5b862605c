package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lafabrik/boutique-backend/pkg/enums"
)

// EmailJob is one queued transactional email. Rows are append-only from the
// business side; only the queue processor mutates status/attempts.
type EmailJob struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	EmailType      enums.EmailType   `gorm:"column:email_type;type:text;not null"`
	RecipientEmail string            `gorm:"column:recipient_email;not null"`
	Status         enums.EmailStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Attempts       int               `gorm:"column:attempts;not null;default:0"`
	LastError      *string           `gorm:"column:last_error"`
	NextRetryAt    *time.Time        `gorm:"column:next_retry_at"`
	SentAt         *time.Time        `gorm:"column:sent_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
