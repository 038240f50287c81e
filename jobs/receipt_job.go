package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-dms/internal/jobs"
	"github.com/odyssey-erp/odyssey-dms/internal/loading"
)

// ReceiptIssuer renders and stores a receipt synchronously.
type ReceiptIssuer interface {
	Issue(ctx context.Context, workflow, key string) (loading.ReceiptStatus, error)
}

// ReceiptJob processes TaskReceiptGenerate tasks.
type ReceiptJob struct {
	Issuer  ReceiptIssuer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReceiptJob wires dependencies for the receipt handler.
func NewReceiptJob(issuer ReceiptIssuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReceiptJob {
	return &ReceiptJob{Issuer: issuer, Logger: logger, Metrics: metrics}
}

// Handle renders one receipt. Missing groups and unknown workflows are not retried.
func (j *ReceiptJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Issuer == nil {
		return errors.New("receipt job: handler not configured")
	}
	var payload ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Workflow == "" || payload.Key == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskReceiptGenerate)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("workflow", payload.Workflow), slog.String("group", payload.Key))
	if _, err = j.Issuer.Issue(ctx, payload.Workflow, payload.Key); err != nil {
		logger.Error("generate receipt", slog.Any("error", err))
		if errors.Is(err, loading.ErrGroupNotFound) || errors.Is(err, loading.ErrUnknownWorkflow) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("receipt generated")
	return nil
}

func (j *ReceiptJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
