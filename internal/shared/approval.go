package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/db"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReceipt marks a receipt issued after approval.
	ApprovalReceipt ApprovalAction = "RECEIPT"
)

// approvalNamespace seeds deterministic reference ids for dashboard objects.
var approvalNamespace = uuid.MustParse("6f1f3c0e-4d4b-5b8e-9a57-3f0c6b7d2a10")

// RefID derives a stable reference id for an object that has no uuid of its own upstream, such
// as a loading group.
func RefID(module, key string) uuid.UUID {
	return uuid.NewSHA1(approvalNamespace, []byte(module+"/"+key))
}

// ApprovalLog represents a single approval record.
type ApprovalLog struct {
	ID      int64
	Module  string
	RefID   uuid.UUID
	RefKey  string
	ActorID int64
	Action  ApprovalAction
	Note    string
	// IdempotencyKey, when set, is linked to the approval in the same transaction.
	IdempotencyKey string
	At             time.Time
}

func (l ApprovalLog) validate() error {
	if l.Module == "" {
		return errors.New("approval module required")
	}
	if l.ActorID == 0 {
		return errors.New("approval actor required")
	}
	if l.RefID == uuid.Nil {
		return errors.New("approval ref id required")
	}
	if l.Action == "" {
		return errors.New("approval action required")
	}
	return nil
}

// ApprovalRecorder persists the dashboard's approval history.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record writes approval entry to database.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("approval recorder: %w", ErrNotConfigured)
	}
	if err := log.validate(); err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO approvals (module, ref_id, ref_key, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`, log.Module, log.RefID, log.RefKey, log.ActorID, string(log.Action), log.Note, at); err != nil {
			return err
		}
		if log.IdempotencyKey == "" {
			return nil
		}
		_, err := tx.Exec(ctx, `UPDATE idempotency_keys SET ref_id=$1 WHERE key=$2`, log.RefID, log.IdempotencyKey)
		return err
	})
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns approvals for module/ref, oldest first.
func (r *ApprovalRecorder) List(ctx context.Context, module string, ref uuid.UUID) ([]ApprovalLog, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("approval recorder: %w", ErrNotConfigured)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, ref_key, actor_id, action, note, at
FROM approvals WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.RefKey, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
