package services

import (
	"context"
	"log/slog"

	"github.com/acadops/timetable-backend/internal/metrics"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
	"github.com/acadops/timetable-backend/internal/worker"
)

// MaxAuditPageSize bounds a single query response.
const MaxAuditPageSize = 1000

// AuditService owns the append-only audit trail. When built with a worker
// pool, Record drains inserts off the caller's path; with a nil pool it runs
// inline, which tests rely on.
type AuditService struct {
	entries repo.AuditEntries
	wp      *worker.Pool
}

func NewAuditService(entries repo.AuditEntries, wp *worker.Pool) *AuditService {
	return &AuditService{entries: entries, wp: wp}
}

// Append persists one entry. Callers must treat an error as non-fatal to
// their own operation.
func (s *AuditService) Append(ctx context.Context, e models.NewAuditEntry) (models.AuditEntry, error) {
	entry, err := s.entries.Insert(ctx, e)
	if err != nil {
		return models.AuditEntry{}, err
	}
	metrics.AuditEntriesTotal.WithLabelValues(entry.Action).Inc()
	return entry, nil
}

// Record is the fire-and-forget path used by auth flows and the request
// interceptor. Persistence failures are logged and counted, never returned.
func (s *AuditService) Record(ctx context.Context, e models.NewAuditEntry) {
	if s.wp == nil {
		s.record(ctx, e)
		return
	}
	// Detach from the request lifecycle: the response may already be gone
	// by the time a worker picks this up.
	ctx = context.WithoutCancel(ctx)
	s.wp.Submit(func() { s.record(ctx, e) })
}

func (s *AuditService) record(ctx context.Context, e models.NewAuditEntry) {
	if _, err := s.Append(ctx, e); err != nil {
		metrics.AuditAppendFailures.Inc()
		slog.Error("audit append failed", "action", e.Action, "err", err)
	}
}

// Query returns entries matching the conjunction of set filters, newest
// first, plus the total size of the filtered set. skip is floored at 0 and
// limit clamped to [1, MaxAuditPageSize].
func (s *AuditService) Query(ctx context.Context, f repo.AuditFilter, skip, limit int) ([]models.AuditEntry, int64, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > MaxAuditPageSize {
		limit = MaxAuditPageSize
	}
	return s.entries.List(ctx, f, skip, limit)
}

func (s *AuditService) Get(ctx context.Context, id int64) (models.AuditEntry, error) {
	return s.entries.GetByID(ctx, id)
}
