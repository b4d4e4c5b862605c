package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

type stubEventsRepo struct {
	recorded []models.WebhookEvent
	err      error
}

func (s *stubEventsRepo) WithTx(tx *gorm.DB) EventsRepository { return s }

func (s *stubEventsRepo) Record(ctx context.Context, event *models.WebhookEvent) error {
	if s.err != nil {
		return s.err
	}
	s.recorded = append(s.recorded, *event)
	return nil
}

type stubOrdersRepo struct {
	bySession map[string]*models.Order

	paidCapture  *orders.PaymentCapture
	paidOrderID  uuid.UUID
	paidRows     int64
	canceledID   uuid.UUID
	canceledRows int64
	canceled     bool
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) CreateWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine, consent *models.ConsentRecord) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if order, ok := s.bySession[sessionID]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) List(ctx context.Context, filters orders.ListFilters) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	return nil
}

func (s *stubOrdersRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, capture orders.PaymentCapture) (int64, error) {
	s.paidOrderID = orderID
	s.paidCapture = &capture
	return s.paidRows, nil
}

func (s *stubOrdersRepo) MarkCanceled(ctx context.Context, orderID uuid.UUID, canceledAt time.Time) (int64, error) {
	s.canceled = true
	s.canceledID = orderID
	return s.canceledRows, nil
}

func (s *stubOrdersRepo) MarkFulfilled(ctx context.Context, orderID uuid.UUID, fulfilledAt time.Time) (int64, error) {
	return 0, nil
}

func (s *stubOrdersRepo) MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, trackingURL string, shippedAt time.Time) (int64, error) {
	return 0, nil
}

type stubPickupService struct {
	issuedOrderID uuid.UUID
	secret        string
	err           error
}

func (s *stubPickupService) IssueForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) (string, *models.PickupToken, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	s.issuedOrderID = orderID
	return s.secret, &models.PickupToken{ID: uuid.New(), OrderID: orderID}, nil
}

type capturedEmail struct {
	orderID   uuid.UUID
	emailType enums.EmailType
	recipient string
}

type stubEnqueuer struct {
	emails []capturedEmail
	err    error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error {
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, capturedEmail{orderID, emailType, recipient})
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubIdempotency struct {
	markers map[string]string
}

func (s *stubIdempotency) Get(ctx context.Context, key string) (string, error) {
	return s.markers[key], nil
}

func (s *stubIdempotency) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.markers == nil {
		s.markers = map[string]string{}
	}
	if _, ok := s.markers[key]; ok {
		return false, nil
	}
	s.markers[key] = fmt.Sprint(value)
	return true, nil
}

func (s *stubIdempotency) IdempotencyKey(scope, id string) string {
	return "boutique:idempotency:" + scope + ":" + id
}

func (s *stubIdempotency) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.markers, key)
	}
	return nil
}

type stubSecretCache struct {
	stored map[string]string
	ttls   map[string]time.Duration
}

func (s *stubSecretCache) StorePickupSecret(ctx context.Context, orderID, secret string, ttl time.Duration) error {
	if s.stored == nil {
		s.stored = map[string]string{}
		s.ttls = map[string]time.Duration{}
	}
	s.stored[orderID] = secret
	s.ttls[orderID] = ttl
	return nil
}

func (s *stubSecretCache) GetPickupSecret(ctx context.Context, orderID string) (string, error) {
	return s.stored[orderID], nil
}

func (s *stubSecretCache) DeletePickupSecret(ctx context.Context, orderID string) error {
	delete(s.stored, orderID)
	return nil
}

type webhookFixture struct {
	events  *stubEventsRepo
	orders  *stubOrdersRepo
	pickup  *stubPickupService
	emails  *stubEnqueuer
	idem    *stubIdempotency
	secrets *stubSecretCache
	svc     Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		events:  &stubEventsRepo{},
		orders:  &stubOrdersRepo{bySession: map[string]*models.Order{}},
		pickup:  &stubPickupService{secret: "cafe0123"},
		emails:  &stubEnqueuer{},
		idem:    &stubIdempotency{},
		secrets: &stubSecretCache{},
	}
	svc, err := NewService(ServiceParams{
		Events:         f.events,
		Orders:         f.orders,
		Pickup:         f.pickup,
		Emails:         f.emails,
		Tx:             stubTxRunner{},
		Idempotency:    f.idem,
		Secrets:        f.secrets,
		Logger:         logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		SecretCacheTTL: 72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func sessionEvent(t *testing.T, eventType stripe.EventType, session map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{
		ID:   "evt_" + uuid.NewString()[:8],
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func completedEvent(t *testing.T, sessionID string) stripe.Event {
	return sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             sessionID,
		"payment_intent": "pi_test_1",
		"customer_details": map[string]any{
			"email": "client@example.fr",
			"phone": "+33612345678",
		},
	})
}

func TestCompletedSessionMarksDeliveryOrderPaid(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModeDelivery}
	f.orders.bySession["cs_1"] = order
	f.orders.paidRows = 1

	result, err := f.svc.HandleEvent(context.Background(), completedEvent(t, "cs_1"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Skipped {
		t.Fatal("first delivery must not be skipped")
	}
	if f.orders.paidOrderID != order.ID {
		t.Fatal("order must be marked paid")
	}
	if f.orders.paidCapture.CustomerEmail != "client@example.fr" {
		t.Fatalf("captured email = %q", f.orders.paidCapture.CustomerEmail)
	}
	if f.orders.paidCapture.PaymentIntentID == nil || *f.orders.paidCapture.PaymentIntentID != "pi_test_1" {
		t.Fatal("payment intent id must be captured")
	}
	if len(f.emails.emails) != 1 || f.emails.emails[0].emailType != enums.EmailTypeDeliveryConfirmation {
		t.Fatalf("emails = %+v, want one delivery confirmation", f.emails.emails)
	}
	if f.pickup.issuedOrderID != uuid.Nil {
		t.Fatal("delivery orders never get a pickup token")
	}
	if len(f.events.recorded) != 1 {
		t.Fatal("event id must be recorded")
	}
}

func TestCompletedSessionIssuesPickupToken(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModePickup}
	f.orders.bySession["cs_2"] = order
	f.orders.paidRows = 1

	if _, err := f.svc.HandleEvent(context.Background(), completedEvent(t, "cs_2")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.pickup.issuedOrderID != order.ID {
		t.Fatal("pickup order must get a token")
	}
	if len(f.emails.emails) != 1 || f.emails.emails[0].emailType != enums.EmailTypePickupConfirmation {
		t.Fatalf("emails = %+v, want one pickup confirmation", f.emails.emails)
	}
	if f.secrets.stored[order.ID.String()] != "cafe0123" {
		t.Fatal("clear secret must be cached for the confirmation email")
	}
	if f.secrets.ttls[order.ID.String()] != 72*time.Hour {
		t.Fatalf("secret ttl = %v", f.secrets.ttls[order.ID.String()])
	}
}

func TestRedeliveredEventIsSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModeDelivery}
	f.orders.bySession["cs_3"] = order
	f.orders.paidRows = 1

	event := completedEvent(t, "cs_3")
	if _, err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := f.svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !result.Skipped {
		t.Fatal("redelivery must be skipped")
	}
	if len(f.emails.emails) != 1 {
		t.Fatal("redelivery must not enqueue another email")
	}
}

func TestDuplicateEventRowIsSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	f.events.err = fmt.Errorf(`duplicate key value violates unique constraint "uq_webhook_events_event_id"`)

	result, err := f.svc.HandleEvent(context.Background(), completedEvent(t, "cs_4"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Skipped {
		t.Fatal("db guard must skip an already recorded event")
	}
	if len(f.emails.emails) != 0 {
		t.Fatal("skipped event must have no side effects")
	}
	if len(f.idem.markers) != 1 {
		t.Fatal("durably recorded event must backfill the redis marker")
	}
}

func TestAlreadyPaidOrderHasNoSideEffects(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPaid, FulfillmentMode: enums.FulfillmentModePickup}
	f.orders.bySession["cs_5"] = order
	f.orders.paidRows = 0

	result, err := f.svc.HandleEvent(context.Background(), completedEvent(t, "cs_5"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Skipped {
		t.Fatal("event is still acknowledged as processed")
	}
	if len(f.emails.emails) != 0 {
		t.Fatal("settled order must not enqueue emails")
	}
	if f.pickup.issuedOrderID != uuid.Nil {
		t.Fatal("settled order must not mint a token")
	}
}

func TestCompletedSessionWithoutEmailFails(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModeDelivery}
	f.orders.bySession["cs_6"] = order

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{"id": "cs_6"})
	_, err := f.svc.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.idem.markers) != 0 {
		t.Fatal("failed event must not leave an idempotency marker")
	}
}

func TestFailedAttemptDoesNotSwallowRedelivery(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModeDelivery}
	f.orders.bySession["cs_8"] = order
	f.orders.paidRows = 1

	event := completedEvent(t, "cs_8")
	f.emails.err = fmt.Errorf("queue insert failed")
	if _, err := f.svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("first attempt must surface the failure to Stripe")
	}
	if len(f.idem.markers) != 0 {
		t.Fatal("marker must only exist once the event is durably processed")
	}

	f.emails.err = nil
	result, err := f.svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if result.Skipped {
		t.Fatal("redelivery after a failed attempt must be processed, not skipped")
	}
	if f.orders.paidOrderID != order.ID {
		t.Fatal("order must be marked paid on redelivery")
	}
	if len(f.emails.emails) != 1 {
		t.Fatalf("emails = %+v, want one confirmation", f.emails.emails)
	}
}

func TestExpiredSessionCancelsPendingOrder(t *testing.T) {
	f := newWebhookFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, FulfillmentMode: enums.FulfillmentModeDelivery}
	f.orders.bySession["cs_7"] = order
	f.orders.canceledRows = 1

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, map[string]any{"id": "cs_7"})
	if _, err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !f.orders.canceled || f.orders.canceledID != order.ID {
		t.Fatal("pending order must be canceled")
	}
}

func TestExpiredSessionWithoutOrderIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, map[string]any{"id": "cs_missing"})
	if _, err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.orders.canceled {
		t.Fatal("nothing to cancel")
	}
}

func TestUnknownEventTypeIsRecordedOnly(t *testing.T) {
	f := newWebhookFixture(t)

	event := sessionEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"})
	result, err := f.svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Skipped {
		t.Fatal("unknown types are acknowledged, not skipped")
	}
	if len(f.events.recorded) != 1 || f.events.recorded[0].EventType != "payment_intent.succeeded" {
		t.Fatal("unknown event must still be recorded")
	}
}
