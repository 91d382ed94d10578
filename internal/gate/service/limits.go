package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"
)

var ErrInvalidLimit = errors.New("service: invalid limit config")

// LimitsService reads and updates the per-method rate limit policy.
//
// Snapshot rule: callers fetch the config ONCE per attempt and thread that
// value through check and record. An admin update lands between attempts,
// never in the middle of one.
type LimitsService struct {
	Store store.Store
	Log   *slog.Logger

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *LimitsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Snapshot returns the effective config for a method. A missing row falls
// back to the compiled default rather than failing the attempt.
func (s *LimitsService) Snapshot(ctx context.Context, method domain.Method) (domain.LimitConfig, error) {
	cfg, err := s.Store.Limits().Get(ctx, method)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DefaultLimit(method), nil
	}
	if err != nil {
		return domain.LimitConfig{}, fmt.Errorf("load limit config: %w", err)
	}
	return cfg, nil
}

// List returns the stored config for every known method, filling gaps with
// defaults so operators always see a complete picture.
func (s *LimitsService) List(ctx context.Context) ([]domain.LimitConfig, error) {
	stored, err := s.Store.Limits().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list limit configs: %w", err)
	}

	byMethod := make(map[domain.Method]domain.LimitConfig, len(stored))
	for _, cfg := range stored {
		byMethod[cfg.Method] = cfg
	}

	out := make([]domain.LimitConfig, 0, len(domain.Methods))
	for _, m := range domain.Methods {
		if cfg, ok := byMethod[m]; ok {
			out = append(out, cfg)
			continue
		}
		out = append(out, domain.DefaultLimit(m))
	}
	return out, nil
}

// Update validates and atomically replaces the config for one method.
func (s *LimitsService) Update(ctx context.Context, cfg domain.LimitConfig) (domain.LimitConfig, error) {
	if !cfg.Method.Valid() {
		return domain.LimitConfig{}, fmt.Errorf("%w: unknown method %q", ErrInvalidLimit, cfg.Method)
	}
	if cfg.MaxAttempts < 1 {
		return domain.LimitConfig{}, fmt.Errorf("%w: max_attempts must be >= 1", ErrInvalidLimit)
	}
	if cfg.WindowMinutes < 1 {
		return domain.LimitConfig{}, fmt.Errorf("%w: window_minutes must be >= 1", ErrInvalidLimit)
	}
	if cfg.LockoutMinutes < 1 {
		return domain.LimitConfig{}, fmt.Errorf("%w: lockout_minutes must be >= 1", ErrInvalidLimit)
	}

	cfg.UpdatedAt = s.now()
	if err := s.Store.Limits().Put(ctx, cfg); err != nil {
		return domain.LimitConfig{}, fmt.Errorf("store limit config: %w", err)
	}

	if s.Log != nil {
		s.Log.Info("rate limit config updated",
			"method", string(cfg.Method),
			"max_attempts", cfg.MaxAttempts,
			"window_minutes", cfg.WindowMinutes,
			"lockout_minutes", cfg.LockoutMinutes,
		)
	}
	return cfg, nil
}
