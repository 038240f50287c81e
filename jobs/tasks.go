package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceiptGenerate renders and stores the receipt of an approved loading group.
	TaskReceiptGenerate = "receipt:generate"
	// TaskIdempotencyCleanup purges expired approval request keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReceiptPayload identifies the group whose receipt should be produced.
type ReceiptPayload struct {
	Workflow    string    `json:"workflow"`
	Key         string    `json:"key"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReceiptTask constructs an Asynq task for receipt generation.
func NewReceiptTask(payload ReceiptPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptGenerate, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
