package postgres

import (
	"context"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

type limitsRepo struct {
	q querier
}

func (r *limitsRepo) Get(ctx context.Context, method domain.Method) (domain.LimitConfig, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT method, max_attempts, window_minutes, lockout_minutes, updated_at
		FROM rate_limit_configs WHERE method = $1`, string(method))

	var (
		cfg domain.LimitConfig
		m   string
	)
	err := row.Scan(&m, &cfg.MaxAttempts, &cfg.WindowMinutes, &cfg.LockoutMinutes, &cfg.UpdatedAt)
	if err != nil {
		return domain.LimitConfig{}, mapNotFound(err)
	}
	cfg.Method = domain.Method(m)
	return cfg, nil
}

func (r *limitsRepo) Put(ctx context.Context, cfg domain.LimitConfig) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rate_limit_configs (method, max_attempts, window_minutes, lockout_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (method) DO UPDATE SET
			max_attempts    = EXCLUDED.max_attempts,
			window_minutes  = EXCLUDED.window_minutes,
			lockout_minutes = EXCLUDED.lockout_minutes,
			updated_at      = EXCLUDED.updated_at`,
		string(cfg.Method), cfg.MaxAttempts, cfg.WindowMinutes, cfg.LockoutMinutes, cfg.UpdatedAt)
	return err
}

func (r *limitsRepo) List(ctx context.Context) ([]domain.LimitConfig, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT method, max_attempts, window_minutes, lockout_minutes, updated_at
		FROM rate_limit_configs ORDER BY method`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.LimitConfig
	for rows.Next() {
		var (
			cfg domain.LimitConfig
			m   string
		)
		if err := rows.Scan(&m, &cfg.MaxAttempts, &cfg.WindowMinutes, &cfg.LockoutMinutes, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		cfg.Method = domain.Method(m)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
