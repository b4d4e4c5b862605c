package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

type eventsRepository struct {
	db *gorm.DB
}

// NewEventsRepository builds a webhook event repository bound to the provided DB.
func NewEventsRepository(db *gorm.DB) EventsRepository {
	return &eventsRepository{db: db}
}

func (r *eventsRepository) WithTx(tx *gorm.DB) EventsRepository {
	if tx == nil {
		return r
	}
	return &eventsRepository{db: tx}
}

func (r *eventsRepository) Record(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
