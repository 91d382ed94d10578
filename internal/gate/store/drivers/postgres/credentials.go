package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type credentialsRepo struct {
	q querier
}

func (r *credentialsRepo) GetByUserID(ctx context.Context, userID string) (domain.ShadowCredential, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, pin_hash, biometric_enabled, biometric_kind,
		       totp_secret, totp_activated_at, created_at, updated_at
		FROM shadow_credentials WHERE user_id = $1`, userID)

	var (
		c          domain.ShadowCredential
		bioKind    string
		totpSecret sql.NullString
		totpActive sql.NullTime
	)
	err := row.Scan(&c.UserID, &c.PINHash, &c.BiometricEnabled, &bioKind,
		&totpSecret, &totpActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.ShadowCredential{}, mapNotFound(err)
	}

	c.BiometricKind = domain.BiometricKind(bioKind)
	c.TOTPSecret = mapNullStringPtr(totpSecret)
	c.TOTPActivatedAt = mapNullTimePtr(totpActive)
	return c, nil
}

func (r *credentialsRepo) Create(ctx context.Context, c domain.ShadowCredential) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO shadow_credentials
			(user_id, pin_hash, biometric_enabled, biometric_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		c.UserID, c.PINHash, c.BiometricEnabled, string(c.BiometricKind), c.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *credentialsRepo) UpdatePINHash(ctx context.Context, userID, pinHash string) error {
	return r.exec(ctx, `
		UPDATE shadow_credentials SET pin_hash = $2, updated_at = $3
		WHERE user_id = $1`, userID, pinHash, time.Now().UTC())
}

func (r *credentialsRepo) SetBiometric(ctx context.Context, userID string, enabled bool, kind domain.BiometricKind) error {
	return r.exec(ctx, `
		UPDATE shadow_credentials SET biometric_enabled = $2, biometric_kind = $3, updated_at = $4
		WHERE user_id = $1`, userID, enabled, string(kind), time.Now().UTC())
}

func (r *credentialsRepo) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	return r.exec(ctx, `
		UPDATE shadow_credentials SET totp_secret = $2, totp_activated_at = NULL, updated_at = $3
		WHERE user_id = $1`, userID, secret, time.Now().UTC())
}

func (r *credentialsRepo) ActivateTOTP(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.exec(ctx, `
		UPDATE shadow_credentials SET totp_activated_at = $2, updated_at = $2
		WHERE user_id = $1 AND totp_secret IS NOT NULL`, userID, now)
}

func (r *credentialsRepo) ClearTOTP(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE shadow_credentials SET totp_secret = NULL, totp_activated_at = NULL, updated_at = $2
		WHERE user_id = $1`, userID, time.Now().UTC())
}

func (r *credentialsRepo) Delete(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM shadow_credentials WHERE user_id = $1`, userID)
}

// exec runs a mutation that must touch exactly one row and maps a zero
// row count to ErrNotFound.
func (r *credentialsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
