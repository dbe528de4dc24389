package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/pkg/config"
	"github.com/noah-isme/blog-platform-api/pkg/jobs"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService persists audit trail entries asynchronously through a
// worker-pool queue so request latency is not coupled to audit writes.
type AuditService struct {
	store  auditStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the service and its backing queue.
func NewAuditService(store auditStore, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, logger: logger}
	s.queue = jobs.NewQueue("audit", s.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged and dropped; the
// audit trail is best-effort by design.
func (s *AuditService) Record(entry *models.AuditLog) {
	if s == nil || entry == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    entry.Action,
		Payload: entry,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Warn("dropping audit job with unexpected payload", zap.String("type", job.Type))
		return nil
	}
	return s.store.Create(ctx, entry)
}
