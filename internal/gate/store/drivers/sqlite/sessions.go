package sqlite

import (
	"context"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

type sessionsRepo struct {
	q querier
}

func (r *sessionsRepo) Get(ctx context.Context, sessionID string) (domain.ProfileSession, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, active_profile, updated_at
		FROM profile_sessions WHERE id = ?1`, sessionID)

	var (
		s       domain.ProfileSession
		profile string
	)
	err := row.Scan(&s.ID, &s.UserID, &profile, &s.UpdatedAt)
	if err != nil {
		return domain.ProfileSession{}, mapNotFound(err)
	}
	s.ActiveProfile = domain.Profile(profile)
	return s, nil
}

func (r *sessionsRepo) SetActiveProfile(ctx context.Context, sessionID, userID string, p domain.Profile, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profile_sessions (id, user_id, active_profile, updated_at)
		VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT (id) DO UPDATE SET
			active_profile = excluded.active_profile,
			updated_at     = excluded.updated_at`,
		sessionID, userID, string(p), now)
	return err
}

func (r *sessionsRepo) DeleteStale(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM profile_sessions WHERE updated_at < ?1`, cutoff)
	return err
}
