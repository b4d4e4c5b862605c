package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

// Repository defines persistence operations for the orders tables. Every
// mutating operation is a guarded conditional update returning rows affected
// so callers can detect lost races.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine, consent *models.ConsentRecord) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, capture PaymentCapture) (int64, error)
	MarkCanceled(ctx context.Context, orderID uuid.UUID, canceledAt time.Time) (int64, error)
	MarkFulfilled(ctx context.Context, orderID uuid.UUID, fulfilledAt time.Time) (int64, error)
	MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, trackingURL string, shippedAt time.Time) (int64, error)
}
