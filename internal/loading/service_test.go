package loading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
)

type fakeOrders struct {
	mu      sync.Mutex
	orders  []Order
	err     error
	filters []Filter
}

func (f *fakeOrders) Orders(_ context.Context, filter Filter) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeApprover struct {
	intents []Intent
	err     error
}

func (f *fakeApprover) Approve(_ context.Context, in Intent) error {
	f.intents = append(f.intents, in)
	return f.err
}

type fakeReceipts struct {
	status  ReceiptStatus
	err     error
	calls   []string
	onIssue func()
}

func (f *fakeReceipts) Issue(_ context.Context, workflow, key string) (ReceiptStatus, error) {
	f.calls = append(f.calls, workflow+"/"+key)
	if f.onIssue != nil {
		f.onIssue()
	}
	return f.status, f.err
}

type fakeRecorder struct {
	logs []shared.ApprovalLog
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, log shared.ApprovalLog) error {
	f.logs = append(f.logs, log)
	return f.err
}

func (f *fakeRecorder) List(_ context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range f.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeIdempotency struct {
	keys    map[string]string
	deleted []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}}
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if _, ok := f.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = module
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeLocker struct {
	held     map[string]bool
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.held[key] {
		return nil, cache.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		delete(f.held, key)
		f.released++
	}, nil
}

type fakeMetrics struct {
	approvals []string
	receipts  []string
}

func (f *fakeMetrics) ObserveApproval(workflow, outcome string) {
	f.approvals = append(f.approvals, workflow+":"+outcome)
}

func (f *fakeMetrics) ObserveReceipt(workflow, outcome string) {
	f.receipts = append(f.receipts, workflow+":"+outcome)
}

func sampleOrders() []Order {
	return []Order{
		{ID: 1, LoadingNumber: "L1", Status: StatusPending, TotalAmount: amt("200"), LoadingDate: day("2025-03-01")},
		{ID: 2, LoadingNumber: "L1", Status: StatusFullyCollected, TotalAmount: amt("300"), LoadingDate: day("2025-03-01")},
		{ID: 3, Status: StatusPending, TotalAmount: amt("50"), OrderDate: day("2025-03-02")},
		{ID: 4, LoadingNumber: "L0", Status: StatusFullyCollected, TotalAmount: amt("10"), LoadingDate: day("2025-02-01")},
	}
}

type serviceFixture struct {
	svc      *Service
	orders   *fakeOrders
	approver *fakeApprover
	receipts *fakeReceipts
	recorder *fakeRecorder
	idem     *fakeIdempotency
	locker   *fakeLocker
	metrics  *fakeMetrics
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		orders:   &fakeOrders{orders: sampleOrders()},
		approver: &fakeApprover{},
		receipts: &fakeReceipts{status: ReceiptStatus{Status: ReceiptReady}},
		recorder: &fakeRecorder{},
		idem:     newFakeIdempotency(),
		locker:   &fakeLocker{held: map[string]bool{}},
		metrics:  &fakeMetrics{},
	}
	f.svc = NewService(f.orders, f.approver, nil)
	f.svc.SetReceipts(f.receipts)
	f.svc.SetApprovalRecorder(f.recorder)
	f.svc.SetIdempotency(f.idem)
	f.svc.SetLocker(f.locker)
	f.svc.SetMetrics(f.metrics)
	f.svc.now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestGroupsReadsFreshEveryCall(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	groups, err := f.svc.Groups(ctx, Filter{Workflow: Collection})
	require.NoError(t, err)
	assert.Equal(t, []string{"order:3", "L1", "L0"}, keys(groups))

	f.orders.orders[0].Status = StatusFullyCollected
	groups, err = f.svc.Groups(ctx, Filter{Workflow: Collection})
	require.NoError(t, err)
	l1, _ := FindGroup(groups, "L1")
	assert.False(t, l1.Approvable)
	assert.Len(t, f.orders.filters, 2)
}

func TestGroupNarrowsReadByKey(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	g, err := f.svc.Group(ctx, Collection, "order:3")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, g.OrderIDs())
	assert.Equal(t, []int64{3}, f.orders.filters[0].OrderIDs)

	_, err = f.svc.Group(ctx, Collection, "L1")
	require.NoError(t, err)
	assert.Equal(t, "L1", f.orders.filters[1].LoadingNumber)

	_, err = f.svc.Group(ctx, Collection, "L9")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestApproveLoadingGroup(t *testing.T) {
	f := newServiceFixture()

	res, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "L1", res.Key)
	assert.Equal(t, []int64{1, 2}, res.OrderIDs)
	assert.Nil(t, res.Receipt)
	assert.NotEmpty(t, res.RequestID)

	require.Len(t, f.approver.intents, 1)
	in := f.approver.intents[0]
	assert.Equal(t, "L1", in.LoadingNumber)
	assert.Empty(t, in.OrderIDs)
	assert.Equal(t, int64(7), in.ActorID)
	assert.Equal(t, res.RequestID, in.RequestID)

	require.Len(t, f.recorder.logs, 1)
	log := f.recorder.logs[0]
	assert.Equal(t, "loading.collection", log.Module)
	assert.Equal(t, shared.RefID("loading.collection", "L1"), log.RefID)
	assert.Equal(t, "req-1", log.IdempotencyKey)
	assert.Equal(t, shared.ApprovalApprove, log.Action)

	assert.Equal(t, "loading.collection", f.idem.keys["req-1"])
	assert.Empty(t, f.idem.deleted)
	assert.Equal(t, []string{"collection:approved"}, f.metrics.approvals)
	assert.Equal(t, 1, f.locker.released)
	assert.Empty(t, f.receipts.calls)
}

func TestApproveSyntheticGroupSendsOrderIDs(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Approve(context.Background(), ApproveCommand{Workflow: Collection, Key: "order:3", ActorID: 7})
	require.NoError(t, err)
	require.Len(t, f.approver.intents, 1)
	assert.Empty(t, f.approver.intents[0].LoadingNumber)
	assert.Equal(t, []int64{3}, f.approver.intents[0].OrderIDs)
}

func TestApproveRejectsResolvedGroup(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L0", ActorID: 7, IdempotencyKey: "req-2",
	})
	assert.ErrorIs(t, err, ErrNotApprovable)
	assert.Empty(t, f.approver.intents)
	assert.Equal(t, []string{"req-2"}, f.idem.deleted)
	assert.Empty(t, f.recorder.logs)
}

func TestApproveUnknownGroup(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Approve(context.Background(), ApproveCommand{Workflow: Collection, Key: "L404", ActorID: 7})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Empty(t, f.approver.intents)
}

func TestApproveValidatesCommand(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, ApproveCommand{Key: "L1", ActorID: 7})
	assert.ErrorIs(t, err, ErrUnknownWorkflow)

	_, err = f.svc.Approve(ctx, ApproveCommand{Workflow: Collection, Key: "L1"})
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = f.svc.Approve(ctx, ApproveCommand{Workflow: Collection, ActorID: 7})
	assert.ErrorIs(t, err, ErrInvalidCommand)
	assert.Empty(t, f.orders.filters)
}

func TestApproveRemoteFailureLeavesNothingBehind(t *testing.T) {
	f := newServiceFixture()
	f.approver.err = errors.New("503 from order service")

	_, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-3", PrintReceipt: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Empty(t, f.recorder.logs)
	assert.Empty(t, f.receipts.calls)
	assert.NotContains(t, f.idem.keys, "req-3")
	assert.Equal(t, []string{"collection:failed"}, f.metrics.approvals)

	f.approver.err = nil
	_, err = f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-3",
	})
	assert.NoError(t, err)
}

func TestApproveReadFailureReleasesKey(t *testing.T) {
	f := newServiceFixture()
	f.orders.err = ErrOrdersUnavailable

	_, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-4",
	})
	assert.ErrorIs(t, err, ErrOrdersUnavailable)
	assert.Equal(t, []string{"req-4"}, f.idem.deleted)
	assert.Empty(t, f.approver.intents)
}

func TestApproveDuplicateKey(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	cmd := ApproveCommand{Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-5"}

	_, err := f.svc.Approve(ctx, cmd)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, cmd)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, f.approver.intents, 1)
}

func TestApproveWhileLockedIsRefused(t *testing.T) {
	f := newServiceFixture()
	f.locker.held[shared.ApprovalLockKey("collection", "L1")] = true

	_, err := f.svc.Approve(context.Background(), ApproveCommand{Workflow: Collection, Key: "L1", ActorID: 7})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Empty(t, f.orders.filters)
}

func TestApproveThenReceipt(t *testing.T) {
	f := newServiceFixture()

	res, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, PrintReceipt: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, ReceiptReady, res.Receipt.Status)
	assert.Equal(t, []string{"collection/L1"}, f.receipts.calls)
	assert.Equal(t, []string{"collection:ready"}, f.metrics.receipts)

	require.Len(t, f.recorder.logs, 2)
	assert.Equal(t, shared.ApprovalReceipt, f.recorder.logs[1].Action)
	assert.Equal(t, "receipt ready", f.recorder.logs[1].Note)
}

func TestApproveReleasesLockBeforeReceipt(t *testing.T) {
	f := newServiceFixture()
	lockKey := shared.ApprovalLockKey("collection", "L1")
	heldDuringReceipt := true
	f.receipts.onIssue = func() {
		heldDuringReceipt = f.locker.held[lockKey]
	}

	_, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, PrintReceipt: true,
	})
	require.NoError(t, err)
	require.Len(t, f.receipts.calls, 1)
	assert.False(t, heldDuringReceipt)
	assert.Equal(t, 1, f.locker.released)
	assert.Empty(t, f.locker.held)
}

func TestReceiptFailureDoesNotUndoApproval(t *testing.T) {
	f := newServiceFixture()
	f.receipts.err = errors.New("gotenberg: status 500")

	res, err := f.svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, IdempotencyKey: "req-6", PrintReceipt: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.OrderIDs)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, ReceiptFailed, res.Receipt.Status)
	assert.Contains(t, res.Receipt.Error, "gotenberg")

	assert.Len(t, f.approver.intents, 1)
	assert.Len(t, f.recorder.logs, 1)
	assert.Contains(t, f.idem.keys, "req-6")
	assert.Empty(t, f.idem.deleted)
	assert.Equal(t, []string{"collection:approved"}, f.metrics.approvals)
	assert.Equal(t, []string{"collection:failed"}, f.metrics.receipts)
}

func TestRecorderFailureDoesNotFailApproval(t *testing.T) {
	f := newServiceFixture()
	f.recorder.err = errors.New("db down")

	_, err := f.svc.Approve(context.Background(), ApproveCommand{Workflow: Collection, Key: "L1", ActorID: 7})
	assert.NoError(t, err)
	assert.Len(t, f.approver.intents, 1)
}

func TestApproveWithoutReceiptIssuer(t *testing.T) {
	svc := NewService(&fakeOrders{orders: sampleOrders()}, &fakeApprover{}, nil)

	res, err := svc.Approve(context.Background(), ApproveCommand{
		Workflow: Collection, Key: "L1", ActorID: 7, PrintReceipt: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, ReceiptUnavailable, res.Receipt.Status)
}

func TestHistoryListsRecordedApprovals(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, ApproveCommand{Workflow: Collection, Key: "L1", ActorID: 7})
	require.NoError(t, err)

	logs, err := f.svc.History(ctx, Collection, "L1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(7), logs[0].ActorID)

	logs, err = f.svc.History(ctx, Delivery, "L1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	bare := NewService(f.orders, f.approver, nil)
	logs, err = bare.History(ctx, Collection, "L1")
	require.NoError(t, err)
	assert.Nil(t, logs)
}
