package pickup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

// Repository defines persistence operations for pickup tokens.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, token *models.PickupToken) (*models.PickupToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*models.PickupToken, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PickupToken, error)
	Redeem(ctx context.Context, tokenID uuid.UUID, usedAt time.Time, usedBy string) (int64, error)
	FindExpiringUnused(ctx context.Context, from, until time.Time) ([]models.PickupToken, error)
}
