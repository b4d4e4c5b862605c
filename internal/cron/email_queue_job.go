package cron

import (
	"context"
	"fmt"

	"github.com/lafabrik/boutique-backend/internal/emailqueue"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

type queueProcessor interface {
	ProcessBatch(ctx context.Context) (*emailqueue.BatchResult, error)
}

// EmailQueueJobParams configure the queue drain job.
type EmailQueueJobParams struct {
	Logger *logger.Logger
	Queue  queueProcessor
}

// NewEmailQueueJob builds the job draining the outbound email queue.
func NewEmailQueueJob(params EmailQueueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("email queue service required")
	}
	return &emailQueueJob{
		logg:  params.Logger,
		queue: params.Queue,
	}, nil
}

type emailQueueJob struct {
	logg  *logger.Logger
	queue queueProcessor
}

func (j *emailQueueJob) Name() string { return "email-queue-drain" }

func (j *emailQueueJob) Run(ctx context.Context) error {
	result, err := j.queue.ProcessBatch(ctx)
	if err != nil {
		return fmt.Errorf("email queue drain: %w", err)
	}
	if result.Processed == 0 {
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"sent":      result.Sent,
		"retried":   result.Retried,
		"exhausted": result.Exhausted,
	})
	j.logg.Info(logCtx, "email queue drained")
	return nil
}
