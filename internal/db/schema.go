package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables appear on first boot, the same way document collections appear on
// first insert. There is no migration mechanism beyond this.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	// email is intentionally NOT unique: duplicate registrations are
	// allowed and login picks the earliest row.
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email, created_at)`,

	`CREATE TABLE IF NOT EXISTS products (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL,
		price      DOUBLE PRECISION NOT NULL,
		quantity   INTEGER NOT NULL,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id           UUID PRIMARY KEY,
		user_id      UUID NOT NULL,
		items        JSONB NOT NULL,
		total_amount DOUBLE PRECISION NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id          UUID PRIMARY KEY,
		user_id     UUID NOT NULL,
		token_hash  TEXT NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		revoked_at  TIMESTAMPTZ,
		replaced_by UUID
	)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		_, err := pool.Exec(ctx, stmt)

		if err != nil {
			return err
		}
	}

	return nil
}
