package postgres

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenReused   = errors.New("refresh token reused")
)

// RefreshTokenRow stores a hashed refresh token; the raw token never
// touches the database.
type RefreshTokenRow struct {
	ID         string // the token's jti
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
}

type RefreshTokensRepo struct {
	pool    *pgxpool.Pool
	metrics dbObserver
}

func NewRefreshTokensRepo(pool *pgxpool.Pool) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool}
}

func (r *RefreshTokensRepo) WithMetrics(obs dbObserver) *RefreshTokensRepo {
	r.metrics = obs
	return r
}

func (r *RefreshTokensRepo) Insert(ctx context.Context, row RefreshTokenRow) error {
	return observe(r.metrics, "refresh_insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.CreatedAt,
		)
		return err
	})
}

// Rotate atomically retires the token identified by oldID and records next
// in its place. The old row is locked for the duration so two concurrent
// refreshes with the same token serialize instead of double-rotating.
//
// A token that is already revoked means the raw value leaked after an
// earlier rotation; every live session for that user is revoked before
// ErrRefreshTokenReused is returned.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, next RefreshTokenRow) error {
	return observe(r.metrics, "refresh_rotate", func() error {
		tx, err := r.pool.Begin(ctx)

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		row, err := r.getForUpdate(ctx, tx, oldID)

		if err != nil {
			return err
		}

		if row.RevokedAt != nil {
			if err := r.revokeAllForUser(ctx, tx, row.UserID); err != nil {
				return err
			}

			if err := tx.Commit(ctx); err != nil {
				return err
			}

			return ErrRefreshTokenReused
		}

		if time.Now().UTC().After(row.ExpiresAt) {
			return ErrRefreshTokenExpired
		}

		if subtle.ConstantTimeCompare([]byte(row.TokenHash), []byte(presentedHash)) != 1 {
			return ErrRefreshTokenNotFound
		}

		if err := r.revoke(ctx, tx, oldID, &next.ID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt,
		)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// RevokeByID retires a single token. Already-revoked tokens are a no-op,
// so logout is idempotent.
func (r *RefreshTokensRepo) RevokeByID(ctx context.Context, id string) error {
	return observe(r.metrics, "refresh_revoke", func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE refresh_tokens
			 SET revoked_at = NOW()
			 WHERE id = $1 AND revoked_at IS NULL`,
			id,
		)
		return err
	})
}

func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (RefreshTokenRow, error) {
	var row RefreshTokenRow

	err := tx.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by
		 FROM refresh_tokens
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&row.ID, &row.UserID, &row.TokenHash, &row.ExpiresAt, &row.CreatedAt, &row.RevokedAt, &row.ReplacedBy)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshTokenRow{}, ErrRefreshTokenNotFound
		}

		return RefreshTokenRow{}, err
	}

	return row, nil
}

func (r *RefreshTokensRepo) revoke(ctx context.Context, tx pgx.Tx, id string, replacedBy *string) error {
	_, err := tx.Exec(ctx,
		`UPDATE refresh_tokens
		 SET revoked_at = NOW(), replaced_by = $2
		 WHERE id = $1 AND revoked_at IS NULL`,
		id, replacedBy,
	)

	return err
}

func (r *RefreshTokensRepo) revokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE refresh_tokens
		 SET revoked_at = NOW()
		 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)

	return err
}
