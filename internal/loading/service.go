package loading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
)

const approvalLockTTL = 30 * time.Second

// Receipt states reported in ApprovalResult.
const (
	ReceiptReady       = "ready"
	ReceiptQueued      = "queued"
	ReceiptFailed      = "failed"
	ReceiptUnavailable = "unavailable"
)

// ReceiptStatus reports the outcome of the receipt step following an approval.
type ReceiptStatus struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReceiptIssuer produces the printable receipt of a group, synchronously or by enqueueing.
type ReceiptIssuer interface {
	Issue(ctx context.Context, workflow, key string) (ReceiptStatus, error)
}

// ApprovalRecorder stores the dashboard's own approval history.
type ApprovalRecorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// IdempotencyStore claims and releases client request keys.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Locker serialises approvals of the same group across replicas.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Metrics counts approval and receipt outcomes.
type Metrics interface {
	ObserveApproval(workflow, outcome string)
	ObserveReceipt(workflow, outcome string)
}

// ApproveCommand asks for one group to be approved.
type ApproveCommand struct {
	Workflow       Workflow
	Key            string
	ActorID        int64
	IdempotencyKey string
	PrintReceipt   bool
}

// ApprovalResult is returned once the order service accepted the approval. Receipt is reported
// separately; a failed receipt does not make the approval any less committed.
type ApprovalResult struct {
	Workflow   string         `json:"workflow"`
	Key        string         `json:"key"`
	RequestID  string         `json:"request_id"`
	OrderIDs   []int64        `json:"order_ids"`
	ApprovedAt time.Time      `json:"approved_at"`
	Receipt    *ReceiptStatus `json:"receipt,omitempty"`
}

// Service groups freshly read orders and drives approvals.
type Service struct {
	source      OrderSource
	approver    Approver
	logger      *slog.Logger
	receipts    ReceiptIssuer
	approvals   ApprovalRecorder
	idempotency IdempotencyStore
	locker      Locker
	metrics     Metrics
	now         func() time.Time
}

// NewService constructs a Service. Optional collaborators are attached with the Set methods.
func NewService(source OrderSource, approver Approver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, approver: approver, logger: logger, now: time.Now}
}

// SetReceipts attaches the receipt issuer used after approvals.
func (s *Service) SetReceipts(issuer ReceiptIssuer) { s.receipts = issuer }

// SetApprovalRecorder attaches the approval history store.
func (s *Service) SetApprovalRecorder(rec ApprovalRecorder) { s.approvals = rec }

// SetIdempotency attaches the request key store.
func (s *Service) SetIdempotency(store IdempotencyStore) { s.idempotency = store }

// SetLocker attaches the distributed approval lock.
func (s *Service) SetLocker(l Locker) { s.locker = l }

// SetMetrics attaches outcome counters.
func (s *Service) SetMetrics(m Metrics) { s.metrics = m }

// Groups reads orders and groups them for the filter's workflow.
func (s *Service) Groups(ctx context.Context, f Filter) ([]Group, error) {
	orders, err := s.source.Orders(ctx, f)
	if err != nil {
		s.logger.Warn("order read failed", slog.String("workflow", f.Workflow.Name), slog.Any("error", err))
		return nil, err
	}
	return GroupByLoadingNumber(orders, f.Workflow), nil
}

// Group reads exactly the orders of one group.
func (s *Service) Group(ctx context.Context, wf Workflow, key string) (Group, error) {
	f := Filter{Workflow: wf}
	loadingNumber, orderID, synthetic := ParseKey(key)
	if synthetic {
		f.OrderIDs = []int64{orderID}
	} else {
		f.LoadingNumber = loadingNumber
	}
	groups, err := s.Groups(ctx, f)
	if err != nil {
		return Group{}, err
	}
	g, ok := FindGroup(groups, key)
	if !ok {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, key)
	}
	return g, nil
}

// Approve approves one group. The approvability check runs on a fresh read; the remote command is
// authoritative. On remote failure nothing is recorded and the idempotency key is released so the
// caller can retry.
func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) (ApprovalResult, error) {
	if cmd.Workflow.Name == "" {
		return ApprovalResult{}, ErrUnknownWorkflow
	}
	if cmd.Key == "" || cmd.ActorID <= 0 {
		return ApprovalResult{}, ErrInvalidCommand
	}
	module := approvalModule(cmd.Workflow)
	logger := s.logger.With(slog.String("workflow", cmd.Workflow.Name), slog.String("group", cmd.Key))

	// The lock covers the approval and its audit entry; receipt rendering runs after release.
	unlock := func() {}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.ApprovalLockKey(cmd.Workflow.Name, cmd.Key), approvalLockTTL)
		if errors.Is(err, cache.ErrLockHeld) {
			return ApprovalResult{}, fmt.Errorf("%w: approval in progress", ErrDuplicateRequest)
		}
		if err != nil {
			return ApprovalResult{}, err
		}
		var once sync.Once
		unlock = func() { once.Do(release) }
		defer unlock()
	}

	claimed := false
	if s.idempotency != nil && cmd.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, cmd.IdempotencyKey, module); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return ApprovalResult{}, ErrDuplicateRequest
			}
			return ApprovalResult{}, fmt.Errorf("claim idempotency key: %w", err)
		}
		claimed = true
	}
	releaseKey := func() {
		if !claimed {
			return
		}
		if err := s.idempotency.Delete(context.WithoutCancel(ctx), cmd.IdempotencyKey); err != nil {
			logger.Warn("release idempotency key", slog.Any("error", err))
		}
	}

	group, err := s.Group(ctx, cmd.Workflow, cmd.Key)
	if err != nil {
		releaseKey()
		return ApprovalResult{}, err
	}
	if !group.Approvable {
		releaseKey()
		return ApprovalResult{}, ErrNotApprovable
	}

	requestID := uuid.NewString()
	intent := Intent{
		Workflow:      cmd.Workflow.Name,
		LoadingNumber: group.LoadingNumber,
		ActorID:       cmd.ActorID,
		RequestID:     requestID,
	}
	if group.Synthetic {
		intent.OrderIDs = group.OrderIDs()
	}
	if err := s.approver.Approve(ctx, intent); err != nil {
		releaseKey()
		s.observeApproval(cmd.Workflow.Name, "failed")
		logger.Error("approval command failed", slog.String("request_id", requestID), slog.Any("error", err))
		return ApprovalResult{}, err
	}
	s.observeApproval(cmd.Workflow.Name, "approved")

	result := ApprovalResult{
		Workflow:   cmd.Workflow.Name,
		Key:        group.Key,
		RequestID:  requestID,
		OrderIDs:   group.OrderIDs(),
		ApprovedAt: s.now().UTC(),
	}
	logger.Info("group approved", slog.String("request_id", requestID), slog.Int("orders", len(result.OrderIDs)))

	if s.approvals != nil {
		entry := shared.ApprovalLog{
			Module:  module,
			RefID:   shared.RefID(module, group.Key),
			RefKey:  group.Key,
			ActorID: cmd.ActorID,
			Action:  shared.ApprovalApprove,
			Note:    fmt.Sprintf("%d orders approved, request %s", len(result.OrderIDs), requestID),
			At:      result.ApprovedAt,
		}
		if claimed {
			entry.IdempotencyKey = cmd.IdempotencyKey
		}
		if err := s.approvals.Record(ctx, entry); err != nil {
			logger.Warn("approval history not recorded", slog.Any("error", err))
		}
	}
	unlock()

	if cmd.PrintReceipt {
		receipt := s.issueReceipt(ctx, cmd.Workflow.Name, group.Key, logger)
		result.Receipt = &receipt
		if s.approvals != nil && (receipt.Status == ReceiptReady || receipt.Status == ReceiptQueued) {
			entry := shared.ApprovalLog{
				Module:  module,
				RefID:   shared.RefID(module, group.Key),
				RefKey:  group.Key,
				ActorID: cmd.ActorID,
				Action:  shared.ApprovalReceipt,
				Note:    "receipt " + receipt.Status,
				At:      s.now().UTC(),
			}
			if err := s.approvals.Record(ctx, entry); err != nil {
				logger.Warn("receipt history not recorded", slog.Any("error", err))
			}
		}
	}
	return result, nil
}

// IssueReceipt issues a receipt outside an approval, typically after an earlier attempt failed.
func (s *Service) IssueReceipt(ctx context.Context, wf Workflow, key string) (ReceiptStatus, error) {
	if s.receipts == nil {
		return ReceiptStatus{Status: ReceiptUnavailable}, nil
	}
	status, err := s.receipts.Issue(ctx, wf.Name, key)
	if err != nil {
		s.observeReceipt(wf.Name, ReceiptFailed)
		return ReceiptStatus{}, err
	}
	s.observeReceipt(wf.Name, status.Status)
	return status, nil
}

func (s *Service) issueReceipt(ctx context.Context, workflow, key string, logger *slog.Logger) ReceiptStatus {
	if s.receipts == nil {
		s.observeReceipt(workflow, ReceiptUnavailable)
		return ReceiptStatus{Status: ReceiptUnavailable}
	}
	status, err := s.receipts.Issue(ctx, workflow, key)
	if err != nil {
		logger.Error("receipt after approval failed", slog.Any("error", err))
		s.observeReceipt(workflow, ReceiptFailed)
		return ReceiptStatus{Status: ReceiptFailed, Error: err.Error()}
	}
	s.observeReceipt(workflow, status.Status)
	return status
}

func (s *Service) observeApproval(workflow, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveApproval(workflow, outcome)
	}
}

func (s *Service) observeReceipt(workflow, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveReceipt(workflow, outcome)
	}
}

// History lists the recorded approvals of a group, oldest first. Without a recorder it is empty.
func (s *Service) History(ctx context.Context, wf Workflow, key string) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return nil, nil
	}
	module := approvalModule(wf)
	return s.approvals.List(ctx, module, shared.RefID(module, key))
}

func approvalModule(wf Workflow) string {
	return "loading." + wf.Name
}
