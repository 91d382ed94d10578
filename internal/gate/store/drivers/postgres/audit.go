package postgres

import (
	"context"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

const (
	defaultAuditListLimit = 100
	auditAppendRetries    = 5
)

type auditRepo struct {
	q querier
}

// Append assigns the per-user sequence number inside the INSERT itself.
// Unlike sqlite, two postgres connections can evaluate the MAX(seq)
// subquery concurrently and collide on UNIQUE(user_id, seq); the loser
// retries with a fresh read.
func (r *auditRepo) Append(ctx context.Context, e domain.AuditEntry) (domain.AuditEntry, error) {
	var lastErr error
	for attempt := 0; attempt < auditAppendRetries; attempt++ {
		row := r.q.QueryRowContext(ctx, `
			INSERT INTO audit_entries (id, user_id, seq, method, outcome, ip, device, created_at)
			VALUES (
				$1, $2,
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_entries WHERE user_id = $2),
				$3, $4, $5, $6, $7
			)
			RETURNING seq`,
			e.ID, e.UserID, string(e.Method), string(e.Outcome),
			e.Actor.IP, e.Actor.Device, e.CreatedAt)

		err := row.Scan(&e.Seq)
		if err == nil {
			return e, nil
		}
		if !isUniqueViolation(err) {
			return domain.AuditEntry{}, err
		}
		lastErr = err
	}
	return domain.AuditEntry{}, lastErr
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, seq, method, outcome, ip, device, created_at
		FROM audit_entries WHERE user_id = $1
		ORDER BY seq ASC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			method  string
			outcome string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Seq, &method, &outcome,
			&e.Actor.IP, &e.Actor.Device, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Method = domain.Method(method)
		e.Outcome = domain.Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *auditRepo) CountViolations(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_entries
		WHERE outcome != $1 AND created_at >= $2`,
		string(domain.OutcomeSuccess), since).Scan(&n)
	return n, err
}
