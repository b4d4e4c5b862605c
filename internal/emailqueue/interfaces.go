package emailqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
)

// Repository defines persistence operations for the email queue. Business
// code only ever appends rows; the processor owns status/attempt mutations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.EmailJob) (*models.EmailJob, error)
	FindDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.EmailJob, error)
	MarkSent(ctx context.Context, jobID uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, attempts int, lastError string, status enums.EmailStatus, nextRetryAt time.Time) error
	HasJobOfType(ctx context.Context, orderID uuid.UUID, emailType enums.EmailType) (bool, error)
}

// Sender delivers one queued email. Implementations must be safe to retry.
type Sender interface {
	Send(ctx context.Context, job *models.EmailJob) error
}
