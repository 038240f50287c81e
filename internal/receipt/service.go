package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-dms/internal/loading"
)

// GroupReader reads one loading group fresh from upstream.
type GroupReader interface {
	Group(ctx context.Context, wf loading.Workflow, key string) (loading.Group, error)
}

// PDFRenderer renders a payload to PDF.
type PDFRenderer interface {
	Render(ctx context.Context, p Payload) ([]byte, error)
}

// Service issues receipts synchronously and serves stored ones.
type Service struct {
	groups    GroupReader
	renderer  PDFRenderer
	store     *Store
	formatter Formatter
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(groups GroupReader, renderer PDFRenderer, store *Store, formatter Formatter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{groups: groups, renderer: renderer, store: store, formatter: formatter, logger: logger, now: time.Now}
}

// Issue reads the group, renders its receipt and stores it.
func (s *Service) Issue(ctx context.Context, workflow, key string) (loading.ReceiptStatus, error) {
	wf, ok := loading.LookupWorkflow(workflow)
	if !ok {
		return loading.ReceiptStatus{}, fmt.Errorf("%w: %s", loading.ErrUnknownWorkflow, workflow)
	}
	group, err := s.groups.Group(ctx, wf, key)
	if err != nil {
		return loading.ReceiptStatus{}, err
	}
	payload := BuildPayload(group, wf.Name, s.formatter, s.now())
	pdf, err := s.renderer.Render(ctx, payload)
	if err != nil {
		return loading.ReceiptStatus{}, fmt.Errorf("render receipt: %w", err)
	}
	if err := s.store.Save(ctx, wf.Name, group.Key, pdf); err != nil {
		return loading.ReceiptStatus{}, err
	}
	s.logger.Info("receipt issued", slog.String("workflow", wf.Name), slog.String("group", group.Key), slog.Int("bytes", len(pdf)))
	return loading.ReceiptStatus{Status: loading.ReceiptReady}, nil
}

// Fetch returns a stored receipt.
func (s *Service) Fetch(ctx context.Context, workflow, key string) ([]byte, error) {
	return s.store.Load(ctx, workflow, key)
}
