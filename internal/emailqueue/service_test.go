package emailqueue

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

type fakeQueueRepo struct {
	due     []models.EmailJob
	created []models.EmailJob

	sent   []uuid.UUID
	failed []failedCall
}

type failedCall struct {
	jobID     uuid.UUID
	attempts  int
	lastError string
	status    enums.EmailStatus
	nextRetry time.Time
}

func (f *fakeQueueRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeQueueRepo) Create(ctx context.Context, job *models.EmailJob) (*models.EmailJob, error) {
	job.ID = uuid.New()
	f.created = append(f.created, *job)
	return job, nil
}

func (f *fakeQueueRepo) FindDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.EmailJob, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeQueueRepo) MarkSent(ctx context.Context, jobID uuid.UUID, sentAt time.Time) error {
	f.sent = append(f.sent, jobID)
	return nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, jobID uuid.UUID, attempts int, lastError string, status enums.EmailStatus, nextRetryAt time.Time) error {
	f.failed = append(f.failed, failedCall{jobID, attempts, lastError, status, nextRetryAt})
	return nil
}

func (f *fakeQueueRepo) HasJobOfType(ctx context.Context, orderID uuid.UUID, emailType enums.EmailType) (bool, error) {
	return false, nil
}

type fakeSender struct {
	failFor map[uuid.UUID]error
	sent    []uuid.UUID
}

func (f *fakeSender) Send(ctx context.Context, job *models.EmailJob) error {
	if err, ok := f.failFor[job.ID]; ok {
		return err
	}
	f.sent = append(f.sent, job.ID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newQueueService(t *testing.T, repo *fakeQueueRepo, sender *fakeSender) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Sender:      sender,
		Logger:      testLogger(),
		BatchSize:   10,
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func dueJob(attempts int) models.EmailJob {
	return models.EmailJob{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		EmailType:      enums.EmailTypeDeliveryConfirmation,
		RecipientEmail: "client@example.fr",
		Status:         enums.EmailStatusPending,
		Attempts:       attempts,
	}
}

func TestNextRetryDelaySchedule(t *testing.T) {
	want := []time.Duration{
		5 * time.Minute,
		15 * time.Minute,
		time.Hour,
		4 * time.Hour,
		24 * time.Hour,
	}
	for attempts, expected := range want {
		if got := NextRetryDelay(attempts); got != expected {
			t.Fatalf("delay(%d) = %v, want %v", attempts, got, expected)
		}
	}
	if got := NextRetryDelay(9); got != 24*time.Hour {
		t.Fatalf("delay beyond schedule = %v, want 24h cap", got)
	}
	if got := NextRetryDelay(-1); got != 5*time.Minute {
		t.Fatalf("negative attempts = %v, want first delay", got)
	}
}

func TestProcessBatchSendsDueJobs(t *testing.T) {
	jobs := []models.EmailJob{dueJob(0), dueJob(0)}
	repo := &fakeQueueRepo{due: jobs}
	sender := &fakeSender{}
	svc := newQueueService(t, repo, sender)

	result, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Processed != 2 || result.Sent != 2 {
		t.Fatalf("result = %+v, want 2 processed 2 sent", result)
	}
	if len(repo.sent) != 2 {
		t.Fatalf("expected 2 MarkSent calls, got %d", len(repo.sent))
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	ok := dueJob(0)
	bad := dueJob(0)
	repo := &fakeQueueRepo{due: []models.EmailJob{bad, ok}}
	sender := &fakeSender{failFor: map[uuid.UUID]error{bad.ID: fmt.Errorf("smtp boom")}}
	svc := newQueueService(t, repo, sender)

	result, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Sent != 1 || result.Retried != 1 {
		t.Fatalf("result = %+v, want 1 sent 1 retried", result)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected one MarkFailed call")
	}
	call := repo.failed[0]
	if call.status != enums.EmailStatusPending {
		t.Fatalf("status = %s, want pending for retry", call.status)
	}
	if call.attempts != 1 {
		t.Fatalf("attempts = %d, want 1", call.attempts)
	}
	if call.lastError != "smtp boom" {
		t.Fatalf("last error = %q", call.lastError)
	}
}

func TestProcessBatchExhaustsAtMaxAttempts(t *testing.T) {
	job := dueJob(4)
	repo := &fakeQueueRepo{due: []models.EmailJob{job}}
	sender := &fakeSender{failFor: map[uuid.UUID]error{job.ID: fmt.Errorf("still broken")}}
	svc := newQueueService(t, repo, sender)

	result, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Exhausted != 1 || result.Retried != 0 {
		t.Fatalf("result = %+v, want 1 exhausted", result)
	}
	if repo.failed[0].status != enums.EmailStatusFailed {
		t.Fatalf("status = %s, want failed", repo.failed[0].status)
	}
	if repo.failed[0].attempts != 5 {
		t.Fatalf("attempts = %d, want 5", repo.failed[0].attempts)
	}
}

func TestProcessBatchFailsPermanentErrorsImmediately(t *testing.T) {
	job := dueJob(0)
	repo := &fakeQueueRepo{due: []models.EmailJob{job}}
	sender := &fakeSender{failFor: map[uuid.UUID]error{
		job.ID: pkgerrors.New(pkgerrors.CodeGone, "clear pickup secret no longer cached"),
	}}
	svc := newQueueService(t, repo, sender)

	result, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if result.Exhausted != 1 || result.Retried != 0 {
		t.Fatalf("result = %+v, want immediate permanent failure", result)
	}
	if repo.failed[0].status != enums.EmailStatusFailed {
		t.Fatalf("status = %s, want failed on first attempt", repo.failed[0].status)
	}
	if repo.failed[0].attempts != 1 {
		t.Fatalf("attempts = %d, want 1", repo.failed[0].attempts)
	}
}

func TestEnqueueValidation(t *testing.T) {
	repo := &fakeQueueRepo{}
	svc := newQueueService(t, repo, &fakeSender{})
	ctx := context.Background()

	if err := svc.Enqueue(ctx, nil, uuid.Nil, enums.EmailTypePickupConfirmation, "a@b.fr"); pkgerrors.As(err) == nil {
		t.Fatal("expected error for nil order id")
	}
	if err := svc.Enqueue(ctx, nil, uuid.New(), "party_invitation", "a@b.fr"); pkgerrors.As(err) == nil {
		t.Fatal("expected error for invalid type")
	}
	if err := svc.Enqueue(ctx, nil, uuid.New(), enums.EmailTypePickupConfirmation, ""); pkgerrors.As(err) == nil {
		t.Fatal("expected error for missing recipient")
	}

	if err := svc.Enqueue(ctx, nil, uuid.New(), enums.EmailTypePickupConfirmation, "a@b.fr"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created job")
	}
	created := repo.created[0]
	if created.Status != enums.EmailStatusPending || created.Attempts != 0 {
		t.Fatalf("new job must start pending with zero attempts: %+v", created)
	}
	if created.NextRetryAt == nil {
		t.Fatal("new job must be due immediately")
	}
}
