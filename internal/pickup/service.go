package pickup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RedeemInput carries the scanned secret and the staff member validating it.
type RedeemInput struct {
	Secret     string
	StaffEmail string
}

// RedeemResult returns the fulfilled order details shown to staff.
type RedeemResult struct {
	OrderID         uuid.UUID `json:"order_id"`
	CustomerEmail   string    `json:"customer_email"`
	GrandTotalCents int       `json:"grand_total_cents"`
	CreatedAt       time.Time `json:"created_at"`
}

// Service defines pickup token operations.
type Service interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) (string, *models.PickupToken, error)
	Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error)
}

type service struct {
	tokens       Repository
	orders       orders.Repository
	tx           txRunner
	validityDays int
}

// NewService builds the pickup service with the required dependencies.
func NewService(tokens Repository, ordersRepo orders.Repository, tx txRunner, validityDays int) (Service, error) {
	if tokens == nil {
		return nil, fmt.Errorf("pickup token repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}
	return &service{
		tokens:       tokens,
		orders:       ordersRepo,
		tx:           tx,
		validityDays: validityDays,
	}, nil
}

// IssueForOrder mints a single-use secret for the order inside the caller's
// transaction and returns the clear secret alongside the stored row. The
// unique order_id constraint turns a second issuance into an error.
func (s *service) IssueForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) (string, *models.PickupToken, error) {
	secret, hash, err := IssueSecret()
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issuing pickup secret")
	}

	token := &models.PickupToken{
		OrderID:   orderID,
		TokenHash: hash,
		ExpiresAt: ExpiryFrom(now, s.validityDays),
	}

	created, err := s.tokens.WithTx(tx).Create(ctx, token)
	if err != nil {
		return "", nil, err
	}
	return secret, created, nil
}

func (s *service) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	if input.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	staffEmail := input.StaffEmail
	if staffEmail == "" {
		staffEmail = "unknown"
	}

	token, err := s.tokens.FindByHash(ctx, HashSecret(input.Secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pickup token")
	}

	now := time.Now().UTC()
	if IsExpired(now, token.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "token has expired").
			WithDetails(map[string]any{"expires_at": token.ExpiresAt})
	}
	if token.UsedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "token has already been used").
			WithDetails(map[string]any{
				"used_at": token.UsedAt,
				"used_by": token.UsedBy,
			})
	}

	order, err := s.orders.FindByID(ctx, token.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "associated order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a valid state for pickup").
			WithDetails(map[string]any{"current_status": order.Status})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.tokens.WithTx(tx).Redeem(ctx, token.ID, now, staffEmail)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeeming token")
		}
		if rows == 0 {
			// a concurrent scan won; report who got there first
			return s.alreadyUsedError(ctx, token.OrderID)
		}

		rows, err = s.orders.WithTx(tx).MarkFulfilled(ctx, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fulfilling order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a valid state for pickup")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RedeemResult{
		OrderID:         order.ID,
		CustomerEmail:   order.CustomerEmail,
		GrandTotalCents: order.GrandTotalCents,
		CreatedAt:       order.CreatedAt,
	}, nil
}

// alreadyUsedError re-reads the token so the conflict reports who redeemed it
// and when, matching the pre-check path.
func (s *service) alreadyUsedError(ctx context.Context, orderID uuid.UUID) error {
	conflict := pkgerrors.New(pkgerrors.CodeConflict, "token has already been used")
	used, err := s.tokens.FindByOrderID(ctx, orderID)
	if err != nil || used.UsedAt == nil {
		return conflict
	}
	return conflict.WithDetails(map[string]any{
		"used_at": used.UsedAt,
		"used_by": used.UsedBy,
	})
}
