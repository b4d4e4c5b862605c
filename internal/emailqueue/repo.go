package emailqueue

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

// NewRepository builds an email queue repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.EmailJob) (*models.EmailJob, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.EmailJob, error) {
	var jobs []models.EmailJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ? AND attempts < ?", enums.EmailStatusPending, now, maxAttempts).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) MarkSent(ctx context.Context, jobID uuid.UUID, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":  enums.EmailStatusSent,
			"sent_at": sentAt,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, jobID uuid.UUID, attempts int, lastError string, status enums.EmailStatus, nextRetryAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":        status,
			"attempts":      attempts,
			"last_error":    lastError,
			"next_retry_at": nextRetryAt,
		}).Error
}

func (r *repository) HasJobOfType(ctx context.Context, orderID uuid.UUID, emailType enums.EmailType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("order_id = ? AND email_type = ?", orderID, emailType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
