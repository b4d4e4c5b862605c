package pickup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickup token repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, token *models.PickupToken) (*models.PickupToken, error) {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*models.PickupToken, error) {
	var token models.PickupToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PickupToken, error) {
	var token models.PickupToken
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Redeem marks the token used. The used_at IS NULL guard makes the token
// single-use even under concurrent scans.
func (r *repository) Redeem(ctx context.Context, tokenID uuid.UUID, usedAt time.Time, usedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PickupToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Updates(map[string]any{
			"used_at": usedAt,
			"used_by": usedBy,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindExpiringUnused(ctx context.Context, from, until time.Time) ([]models.PickupToken, error) {
	var tokens []models.PickupToken
	err := r.db.WithContext(ctx).
		Where("used_at IS NULL AND expires_at > ? AND expires_at <= ?", from, until).
		Order("expires_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
