package sqlite

import (
	"context"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

const defaultAuditListLimit = 100

type auditRepo struct {
	q querier
}

// Append assigns the per-user sequence number inside the INSERT itself.
// The UNIQUE(user_id, seq) constraint backs the subquery up: two racing
// inserts for the same user cannot both land on the same seq.
func (r *auditRepo) Append(ctx context.Context, e domain.AuditEntry) (domain.AuditEntry, error) {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO audit_entries (id, user_id, seq, method, outcome, ip, device, created_at)
		VALUES (
			?1, ?2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_entries WHERE user_id = ?2),
			?3, ?4, ?5, ?6, ?7
		)
		RETURNING seq`,
		e.ID, e.UserID, string(e.Method), string(e.Outcome),
		e.Actor.IP, e.Actor.Device, e.CreatedAt)

	if err := row.Scan(&e.Seq); err != nil {
		return domain.AuditEntry{}, err
	}
	return e, nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, seq, method, outcome, ip, device, created_at
		FROM audit_entries WHERE user_id = ?1
		ORDER BY seq ASC LIMIT ?2`, userID, limit)
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
		WHERE outcome != ?1 AND created_at >= ?2`,
		string(domain.OutcomeSuccess), since).Scan(&n)
	return n, err
}
