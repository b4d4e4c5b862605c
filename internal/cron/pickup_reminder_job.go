package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

const defaultReminderWindow = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reminderTokensRepo interface {
	FindExpiringUnused(ctx context.Context, from, until time.Time) ([]models.PickupToken, error)
}

type reminderOrdersRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type reminderDedupe interface {
	HasJobOfType(ctx context.Context, orderID uuid.UUID, emailType enums.EmailType) (bool, error)
}

type reminderEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error
}

// PickupReminderJobParams configure the reminder job.
type PickupReminderJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Tokens reminderTokensRepo
	Orders reminderOrdersRepo
	Dedupe reminderDedupe
	Emails reminderEnqueuer
	Window time.Duration
}

// NewPickupReminderJob builds the job nudging customers whose pickup code
// expires soon. Each order gets at most one reminder, ever.
func NewPickupReminderJob(params PickupReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("pickup tokens repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Dedupe == nil {
		return nil, fmt.Errorf("email jobs repository required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email enqueuer required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	return &pickupReminderJob{
		logg:   params.Logger,
		db:     params.DB,
		tokens: params.Tokens,
		orders: params.Orders,
		dedupe: params.Dedupe,
		emails: params.Emails,
		window: window,
		now:    time.Now,
	}, nil
}

type pickupReminderJob struct {
	logg   *logger.Logger
	db     txRunner
	tokens reminderTokensRepo
	orders reminderOrdersRepo
	dedupe reminderDedupe
	emails reminderEnqueuer
	window time.Duration
	now    func() time.Time
}

func (j *pickupReminderJob) Name() string { return "pickup-reminder" }

func (j *pickupReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expiring, err := j.tokens.FindExpiringUnused(ctx, now, now.Add(j.window))
	if err != nil {
		return fmt.Errorf("listing expiring pickup tokens: %w", err)
	}

	var reminders int
	var errs []error
	for _, token := range expiring {
		sent, err := j.remind(ctx, token)
		if err != nil {
			j.logg.Error(j.logg.WithOrderID(ctx, token.OrderID.String()), "queueing pickup reminder", err)
			errs = append(errs, fmt.Errorf("order %s: %w", token.OrderID, err))
			continue
		}
		if sent {
			reminders++
		}
	}

	if reminders > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"expiring":  len(expiring),
			"reminders": reminders,
		})
		j.logg.Info(logCtx, "pickup reminders queued")
	}
	return multierr.Combine(errs...)
}

func (j *pickupReminderJob) remind(ctx context.Context, token models.PickupToken) (bool, error) {
	already, err := j.dedupe.HasJobOfType(ctx, token.OrderID, enums.EmailTypePickupReminder)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	order, err := j.orders.FindByID(ctx, token.OrderID)
	if err != nil {
		return false, err
	}
	if order.Status != enums.OrderStatusPaid || order.CustomerEmail == "" {
		return false, nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.emails.Enqueue(ctx, tx, order.ID, enums.EmailTypePickupReminder, order.CustomerEmail)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
