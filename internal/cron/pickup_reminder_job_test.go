package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

type fakeTokensRepo struct {
	tokens   []models.PickupToken
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeTokensRepo) FindExpiringUnused(ctx context.Context, from, until time.Time) ([]models.PickupToken, error) {
	f.lastFrom, f.lastTo = from, until
	return f.tokens, nil
}

type fakeReminderOrders struct {
	orders map[uuid.UUID]*models.Order
}

func (f *fakeReminderOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeDedupe struct {
	reminded map[uuid.UUID]bool
}

func (f *fakeDedupe) HasJobOfType(ctx context.Context, orderID uuid.UUID, emailType enums.EmailType) (bool, error) {
	return f.reminded[orderID], nil
}

type fakeReminderEnqueuer struct {
	enqueued []uuid.UUID
	err      error
}

func (f *fakeReminderEnqueuer) Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error {
	if f.err != nil {
		return f.err
	}
	if emailType != enums.EmailTypePickupReminder {
		return errors.New("unexpected email type")
	}
	f.enqueued = append(f.enqueued, orderID)
	return nil
}

type reminderFakeTxRunner struct{}

func (reminderFakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newReminderJob(t *testing.T, tokens *fakeTokensRepo, orders *fakeReminderOrders, dedupe *fakeDedupe, emails *fakeReminderEnqueuer) *pickupReminderJob {
	t.Helper()
	jobIface, err := NewPickupReminderJob(PickupReminderJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:     reminderFakeTxRunner{},
		Tokens: tokens,
		Orders: orders,
		Dedupe: dedupe,
		Emails: emails,
		Window: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPickupReminderJob: %v", err)
	}
	job, ok := jobIface.(*pickupReminderJob)
	if !ok {
		t.Fatalf("expected pickupReminderJob, got %T", jobIface)
	}
	return job
}

func paidPickupOrder() *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPaid,
		FulfillmentMode: enums.FulfillmentModePickup,
		CustomerEmail:   "client@example.fr",
	}
}

func TestPickupReminderQueuesOnePerOrder(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	fresh := paidPickupOrder()
	already := paidPickupOrder()
	tokens := &fakeTokensRepo{tokens: []models.PickupToken{
		{ID: uuid.New(), OrderID: fresh.ID, ExpiresAt: now.Add(3 * 24 * time.Hour)},
		{ID: uuid.New(), OrderID: already.ID, ExpiresAt: now.Add(4 * 24 * time.Hour)},
	}}
	orders := &fakeReminderOrders{orders: map[uuid.UUID]*models.Order{fresh.ID: fresh, already.ID: already}}
	dedupe := &fakeDedupe{reminded: map[uuid.UUID]bool{already.ID: true}}
	emails := &fakeReminderEnqueuer{}

	job := newReminderJob(t, tokens, orders, dedupe, emails)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emails.enqueued) != 1 || emails.enqueued[0] != fresh.ID {
		t.Fatalf("enqueued = %v, want only the fresh order", emails.enqueued)
	}
	if !tokens.lastFrom.Equal(now) || !tokens.lastTo.Equal(now.Add(7*24*time.Hour)) {
		t.Fatalf("window = [%s, %s]", tokens.lastFrom, tokens.lastTo)
	}
}

func TestPickupReminderSkipsUnpaidOrders(t *testing.T) {
	now := time.Now().UTC()
	order := paidPickupOrder()
	order.Status = enums.OrderStatusFulfilled

	tokens := &fakeTokensRepo{tokens: []models.PickupToken{
		{ID: uuid.New(), OrderID: order.ID, ExpiresAt: now.Add(24 * time.Hour)},
	}}
	orders := &fakeReminderOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	emails := &fakeReminderEnqueuer{}

	job := newReminderJob(t, tokens, orders, &fakeDedupe{}, emails)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emails.enqueued) != 0 {
		t.Fatal("fulfilled orders must not get reminders")
	}
}

func TestPickupReminderIsolatesPerTokenFailures(t *testing.T) {
	now := time.Now().UTC()
	missing := uuid.New()
	ok := paidPickupOrder()

	tokens := &fakeTokensRepo{tokens: []models.PickupToken{
		{ID: uuid.New(), OrderID: missing, ExpiresAt: now.Add(24 * time.Hour)},
		{ID: uuid.New(), OrderID: ok.ID, ExpiresAt: now.Add(48 * time.Hour)},
	}}
	orders := &fakeReminderOrders{orders: map[uuid.UUID]*models.Order{ok.ID: ok}}
	emails := &fakeReminderEnqueuer{}

	job := newReminderJob(t, tokens, orders, &fakeDedupe{}, emails)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error for the unresolvable order")
	}
	if len(emails.enqueued) != 1 || emails.enqueued[0] != ok.ID {
		t.Fatalf("enqueued = %v, want only the resolvable order", emails.enqueued)
	}
}
