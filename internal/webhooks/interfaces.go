package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

// EventsRepository persists processed gateway event ids. Rows are write-once;
// the unique event_id turns webhook redelivery into a no-op.
type EventsRepository interface {
	WithTx(tx *gorm.DB) EventsRepository
	Record(ctx context.Context, event *models.WebhookEvent) error
}
