package emailqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
	"github.com/lafabrik/boutique-backend/pkg/metrics"
)

// DefaultMaxAttempts caps retries before a job is failed permanently.
const DefaultMaxAttempts = 5

// retryDelays is the escalation schedule applied per attempt count.
var retryDelays = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	time.Hour,
	4 * time.Hour,
	24 * time.Hour,
}

// NextRetryDelay returns the backoff before the given attempt number is
// retried. Attempts beyond the schedule cap at 24h.
func NextRetryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(retryDelays) {
		return retryDelays[len(retryDelays)-1]
	}
	return retryDelays[attempts]
}

// BatchResult summarizes one queue drain pass.
type BatchResult struct {
	Processed int
	Sent      int
	Retried   int
	Exhausted int
}

// Service owns enqueueing and draining the transactional email queue.
type Service interface {
	Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error
	ProcessBatch(ctx context.Context) (*BatchResult, error)
}

type service struct {
	repo        Repository
	sender      Sender
	logg        *logger.Logger
	metrics     *metrics.EmailQueueMetrics
	batchSize   int
	maxAttempts int
}

// ServiceParams wires the email queue service dependencies.
type ServiceParams struct {
	Repo        Repository
	Sender      Sender
	Logger      *logger.Logger
	Metrics     *metrics.EmailQueueMetrics
	BatchSize   int
	MaxAttempts int
}

// NewService validates dependencies and builds the queue service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("email queue repository required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 10
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = DefaultMaxAttempts
	}
	return &service{
		repo:        params.Repo,
		sender:      params.Sender,
		logg:        params.Logger,
		metrics:     params.Metrics,
		batchSize:   params.BatchSize,
		maxAttempts: params.MaxAttempts,
	}, nil
}

func (s *service) Enqueue(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, emailType enums.EmailType, recipient string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !emailType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid email type %q", emailType))
	}
	if recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}

	now := time.Now().UTC()
	job := &models.EmailJob{
		OrderID:        orderID,
		EmailType:      emailType,
		RecipientEmail: recipient,
		Status:         enums.EmailStatusPending,
		NextRetryAt:    &now,
	}
	if _, err := s.repo.WithTx(tx).Create(ctx, job); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue email")
	}
	return nil
}

// ProcessBatch drains due jobs. Each job is isolated: one failing send never
// blocks the rest of the batch.
func (s *service) ProcessBatch(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	jobs, err := s.repo.FindDue(ctx, now, s.maxAttempts, s.batchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading due email jobs")
	}

	result := &BatchResult{Processed: len(jobs)}
	for i := range jobs {
		job := jobs[i]
		jobCtx := s.logg.WithFields(ctx, map[string]any{
			"email_job_id": job.ID.String(),
			"email_type":   string(job.EmailType),
		})

		if sendErr := s.sender.Send(jobCtx, &job); sendErr != nil {
			s.recordFailure(jobCtx, &job, sendErr, result)
			continue
		}

		if err := s.repo.MarkSent(jobCtx, job.ID, time.Now().UTC()); err != nil {
			s.logg.Error(jobCtx, "marking email job sent", err)
			continue
		}
		s.metrics.IncSent(string(job.EmailType))
		result.Sent++
	}
	return result, nil
}

func (s *service) recordFailure(ctx context.Context, job *models.EmailJob, sendErr error, result *BatchResult) {
	attempts := job.Attempts + 1
	status := enums.EmailStatusPending
	if attempts >= s.maxAttempts || !retryable(sendErr) {
		status = enums.EmailStatusFailed
	}
	nextRetry := time.Now().UTC().Add(NextRetryDelay(job.Attempts))

	if err := s.repo.MarkFailed(ctx, job.ID, attempts, sendErr.Error(), status, nextRetry); err != nil {
		s.logg.Error(ctx, "recording email job failure", err)
		return
	}

	if status == enums.EmailStatusFailed {
		s.metrics.IncExhausted(string(job.EmailType))
		result.Exhausted++
		s.logg.Error(ctx, "email job failed permanently", sendErr)
		return
	}
	s.metrics.IncRetried(string(job.EmailType))
	result.Retried++
	s.logg.Warn(ctx, fmt.Sprintf("email send failed, retry %d scheduled: %v", attempts, sendErr))
}

// retryable reports whether a send error can succeed on a later attempt.
// An evicted pickup secret or a missing token row never heals, so those jobs
// fail without burning the remaining attempts.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	return pkgerrors.MetadataFor(typed.Code()).Retryable
}
