package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"
	"github.com/lumora/shadowgate/pkg/idx"
)

// AuditService writes and reads the append-only switch attempt trail.
// Entries are never updated or deleted; the per-user Seq gives each user's
// timeline a total order independent of wall clocks.
type AuditService struct {
	Store store.Store
	Log   *slog.Logger

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *AuditService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Record appends one entry. The write is shielded from caller cancellation
// so an abandoned request still leaves its trace.
func (s *AuditService) Record(ctx context.Context, userID string, method domain.Method, outcome domain.Outcome, actor domain.ActorContext) (domain.AuditEntry, error) {
	ctx = context.WithoutCancel(ctx)

	entry, err := s.Store.Audit().Append(ctx, domain.AuditEntry{
		ID:        idx.New().String(),
		UserID:    userID,
		Method:    method,
		Outcome:   outcome,
		Actor:     actor,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}

	if s.Log != nil {
		s.Log.Info("switch attempt audited",
			"user_id", userID,
			"method", string(method),
			"outcome", string(outcome),
			"seq", entry.Seq,
		)
	}
	return entry, nil
}

// Timeline returns a user's entries oldest first.
func (s *AuditService) Timeline(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	return s.Store.Audit().ListByUser(ctx, userID, limit)
}

// Stats assembles the operations-console counters.
func (s *AuditService) Stats(ctx context.Context) (domain.AuditStats, error) {
	now := s.now()

	total, err := s.Store.Audit().CountViolations(ctx, time.Time{})
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count violations: %w", err)
	}

	last24h, err := s.Store.Audit().CountViolations(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count recent violations: %w", err)
	}

	locked, err := s.Store.Windows().CountLocked(ctx, now)
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count locked users: %w", err)
	}

	return domain.AuditStats{
		TotalViolations: total,
		Violations24h:   last24h,
		LockedUsers:     locked,
	}, nil
}
