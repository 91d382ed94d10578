package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

type windowsRepo struct {
	q querier
}

func (r *windowsRepo) Get(ctx context.Context, userID string, method domain.Method) (domain.RateLimitWindow, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, method, attempt_count, window_started_at, locked_until, updated_at
		FROM rate_limit_windows WHERE user_id = $1 AND method = $2`, userID, string(method))
	return scanWindow(row)
}

func (r *windowsRepo) Reset(ctx context.Context, userID string, method domain.Method, now time.Time) error {
	ms := toMillis(now)
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rate_limit_windows
			(user_id, method, attempt_count, window_started_at, locked_until, updated_at)
		VALUES ($1, $2, 0, $3, NULL, $3)
		ON CONFLICT (user_id, method) DO UPDATE SET
			attempt_count     = 0,
			window_started_at = EXCLUDED.window_started_at,
			locked_until      = NULL,
			updated_at        = EXCLUDED.updated_at`,
		userID, string(method), ms)
	return err
}

// IncrementFailure is a single upsert so concurrent failures cannot lose
// counts; postgres serialises the racing upserts on the primary key. In
// the DO UPDATE branch the table alias reads the existing row: an active
// lockout is left as is, an expired window restarts at 1, and the lockout
// engages when the new count reaches $4.
func (r *windowsRepo) IncrementFailure(ctx context.Context, userID string, method domain.Method, now time.Time, cfg domain.LimitConfig) (domain.RateLimitWindow, error) {
	var (
		nowMs    = toMillis(now)
		lockMs   = toMillis(now.Add(cfg.Lockout()))
		windowMs = cfg.Window().Milliseconds()
	)

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO rate_limit_windows AS w
			(user_id, method, attempt_count, window_started_at, locked_until, updated_at)
		VALUES ($1, $2, 1, $3, CASE WHEN 1 >= $4 THEN $5 END, $3)
		ON CONFLICT (user_id, method) DO UPDATE SET
			attempt_count = CASE
				WHEN w.locked_until IS NOT NULL AND w.locked_until > $3 THEN w.attempt_count
				WHEN $3 - w.window_started_at >= $6 THEN 1
				ELSE w.attempt_count + 1
			END,
			window_started_at = CASE
				WHEN w.locked_until IS NOT NULL AND w.locked_until > $3 THEN w.window_started_at
				WHEN $3 - w.window_started_at >= $6 THEN $3
				ELSE w.window_started_at
			END,
			locked_until = CASE
				WHEN w.locked_until IS NOT NULL AND w.locked_until > $3 THEN w.locked_until
				WHEN $3 - w.window_started_at >= $6 THEN
					CASE WHEN 1 >= $4 THEN $5 END
				WHEN w.attempt_count + 1 >= $4 THEN $5
				ELSE NULL
			END,
			updated_at = $3
		RETURNING user_id, method, attempt_count, window_started_at, locked_until, updated_at`,
		userID, string(method), nowMs, cfg.MaxAttempts, lockMs, windowMs)

	return scanWindow(row)
}

func (r *windowsRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE user_id = $1`, userID)
	return err
}

func (r *windowsRepo) CountLocked(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rate_limit_windows
		WHERE locked_until IS NOT NULL AND locked_until > $1`, toMillis(now)).Scan(&n)
	return n, err
}

func (r *windowsRepo) DeleteStale(ctx context.Context, cutoff time.Time, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM rate_limit_windows
		WHERE updated_at < $1
		  AND (locked_until IS NULL OR locked_until <= $2)`,
		toMillis(cutoff), toMillis(now))
	return err
}

func scanWindow(row *sql.Row) (domain.RateLimitWindow, error) {
	var (
		w         domain.RateLimitWindow
		method    string
		startedMs int64
		lockedMs  sql.NullInt64
		updatedMs int64
	)
	err := row.Scan(&w.UserID, &method, &w.AttemptCount, &startedMs, &lockedMs, &updatedMs)
	if err != nil {
		return domain.RateLimitWindow{}, mapNotFound(err)
	}

	w.Method = domain.Method(method)
	w.WindowStartedAt = fromMillis(startedMs)
	w.LockedUntil = fromMillisPtr(lockedMs)
	w.UpdatedAt = fromMillis(updatedMs)
	return w, nil
}
