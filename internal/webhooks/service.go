package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/db"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
	redispkg "github.com/lafabrik/boutique-backend/pkg/redis"
)

const idempotencyScope = "stripe"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emailEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error
}

type tokenIssuer interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) (string, *models.PickupToken, error)
}

// Result reports what the handler did with a delivered event.
type Result struct {
	EventType string `json:"event_type"`
	Skipped   bool   `json:"skipped"`
}

// Service processes verified Stripe events. The webhook is the only place an
// order transitions to paid; the storefront success page never confirms
// payment on its own.
type Service interface {
	HandleEvent(ctx context.Context, event stripe.Event) (*Result, error)
}

// ServiceParams wires the webhook processor.
type ServiceParams struct {
	Events      EventsRepository
	Orders      orders.Repository
	Pickup      tokenIssuer
	Emails      emailEnqueuer
	Tx          txRunner
	Idempotency redispkg.IdempotencyStore
	Secrets     redispkg.SecretCache
	Logger      *logger.Logger

	IdempotencyTTL time.Duration
	SecretCacheTTL time.Duration
}

type service struct {
	events      EventsRepository
	orders      orders.Repository
	pickup      tokenIssuer
	emails      emailEnqueuer
	tx          txRunner
	idempotency redispkg.IdempotencyStore
	secrets     redispkg.SecretCache
	logg        *logger.Logger

	idempotencyTTL time.Duration
	secretCacheTTL time.Duration
}

// NewService validates dependencies and builds the webhook service.
func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, fmt.Errorf("webhook events repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Pickup == nil {
		return nil, fmt.Errorf("pickup service required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email enqueuer required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if params.Secrets == nil {
		return nil, fmt.Errorf("pickup secret cache required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.IdempotencyTTL <= 0 {
		params.IdempotencyTTL = 720 * time.Hour
	}
	if params.SecretCacheTTL <= 0 {
		params.SecretCacheTTL = 72 * time.Hour
	}
	return &service{
		events:         params.Events,
		orders:         params.Orders,
		pickup:         params.Pickup,
		emails:         params.Emails,
		tx:             params.Tx,
		idempotency:    params.Idempotency,
		secrets:        params.Secrets,
		logg:           params.Logger,
		idempotencyTTL: params.IdempotencyTTL,
		secretCacheTTL: params.SecretCacheTTL,
	}, nil
}

// HandleEvent runs a verified event through the idempotency guards and the
// per-type handler. Unrecognized event types are recorded and acknowledged.
func (s *service) HandleEvent(ctx context.Context, event stripe.Event) (*Result, error) {
	if event.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	// fast path: redis seen-marker short-circuits redelivery without a DB
	// hit. The marker is written only after the webhook_events row commits,
	// so a marker always means the event is durably processed.
	key := s.idempotency.IdempotencyKey(idempotencyScope, event.ID)
	marker, err := s.idempotency.Get(ctx, key)
	if err != nil && !errors.Is(err, redispkg.ErrNotFound) {
		s.logg.Warn(ctx, fmt.Sprintf("idempotency store unavailable, falling back to db guard: %v", err))
	}
	if err == nil && marker != "" {
		s.logg.Info(ctx, "event already processed, skipping")
		return &Result{EventType: string(event.Type), Skipped: true}, nil
	}

	var pickupSecret string
	var pickupOrderID string

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// write-once row is the durable guard behind the redis fast path
		record := &models.WebhookEvent{EventID: event.ID, EventType: string(event.Type)}
		if txErr := s.events.WithTx(tx).Record(ctx, record); txErr != nil {
			if db.IsUniqueViolation(txErr, "uq_webhook_events_event_id") {
				return errAlreadyProcessed
			}
			return txErr
		}

		switch event.Type {
		case stripe.EventTypeCheckoutSessionCompleted:
			secret, orderID, txErr := s.handleSessionCompleted(ctx, tx, event)
			if txErr != nil {
				return txErr
			}
			pickupSecret, pickupOrderID = secret, orderID
			return nil

		case stripe.EventTypeCheckoutSessionExpired:
			return s.handleSessionExpired(ctx, tx, event)

		default:
			s.logg.Info(ctx, "unhandled event type, recording only")
			return nil
		}
	})
	if err == errAlreadyProcessed {
		s.logg.Info(ctx, "event already recorded, skipping")
		s.markProcessed(ctx, key)
		return &Result{EventType: string(event.Type), Skipped: true}, nil
	}
	if err != nil {
		// no marker was written, so Stripe's retry reprocesses the event
		return nil, err
	}
	s.markProcessed(ctx, key)

	if pickupSecret != "" {
		if cacheErr := s.secrets.StorePickupSecret(ctx, pickupOrderID, pickupSecret, s.secretCacheTTL); cacheErr != nil {
			// the token row is committed; the confirmation email will fail
			// and surface through the queue until the cache recovers
			s.logg.Error(ctx, "caching clear pickup secret", cacheErr)
		}
	}

	return &Result{EventType: string(event.Type)}, nil
}

func (s *service) handleSessionCompleted(ctx context.Context, tx *gorm.DB, event stripe.Event) (secret, orderID string, err error) {
	session, err := parseSession(event)
	if err != nil {
		return "", "", err
	}

	ordersTx := s.orders.WithTx(tx)
	order, err := ordersTx.FindByStripeSessionID(ctx, session.ID)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("order not found for session: %s", session.ID))
	}

	email := customerEmail(session)
	if email == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no customer email in session: %s", session.ID))
	}

	capture := orders.PaymentCapture{
		CustomerEmail: email,
		PaidAt:        time.Now().UTC(),
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		pi := session.PaymentIntent.ID
		capture.PaymentIntentID = &pi
	}
	if phone := customerPhone(session); phone != "" {
		capture.CustomerPhone = &phone
	}

	rows, err := ordersTx.MarkPaid(ctx, order.ID, capture)
	if err != nil {
		return "", "", err
	}
	if rows == 0 {
		// already paid or canceled; acknowledge without side effects
		s.logg.Info(ctx, fmt.Sprintf("order %s not pending, payment already settled", order.ID))
		return "", "", nil
	}

	confirmationType := enums.EmailTypeDeliveryConfirmation
	if order.FulfillmentMode == enums.FulfillmentModePickup {
		confirmationType = enums.EmailTypePickupConfirmation
	}
	if err := s.emails.Enqueue(ctx, tx, order.ID, confirmationType, email); err != nil {
		return "", "", err
	}

	if order.FulfillmentMode == enums.FulfillmentModePickup {
		clearSecret, _, err := s.pickup.IssueForOrder(ctx, tx, order.ID, time.Now().UTC())
		if err != nil {
			return "", "", err
		}
		return clearSecret, order.ID.String(), nil
	}
	return "", "", nil
}

func (s *service) handleSessionExpired(ctx context.Context, tx *gorm.DB, event stripe.Event) error {
	session, err := parseSession(event)
	if err != nil {
		return err
	}

	ordersTx := s.orders.WithTx(tx)
	order, err := ordersTx.FindByStripeSessionID(ctx, session.ID)
	if err != nil {
		// session expired before checkout begin linked it; nothing to cancel
		s.logg.Info(ctx, fmt.Sprintf("no order for expired session %s", session.ID))
		return nil
	}

	rows, err := ordersTx.MarkCanceled(ctx, order.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		s.logg.Info(ctx, fmt.Sprintf("order %s not pending, leaving status untouched", order.ID))
	}
	return nil
}

var errAlreadyProcessed = fmt.Errorf("event already processed")

// markProcessed is best effort: losing the marker only costs a redelivery one
// DB round trip before the write-once row skips it again.
func (s *service) markProcessed(ctx context.Context, key string) {
	if _, err := s.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.idempotencyTTL); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("storing idempotency marker: %v", err))
	}
}

func parseSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	if event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event payload missing")
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing checkout session payload")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id missing from event payload")
	}
	return &session, nil
}

func customerEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func customerPhone(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil {
		return session.CustomerDetails.Phone
	}
	return ""
}
