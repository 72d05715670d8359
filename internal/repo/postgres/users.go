package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cartline/cartline/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics dbObserver
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) WithMetrics(obs dbObserver) *UsersRepo {
	r.metrics = obs
	return r
}

// Create inserts a new user. There is deliberately no uniqueness check on
// email: duplicate registrations produce separate rows and login resolves
// the earliest one.
func (r *UsersRepo) Create(ctx context.Context, username, email, passwordHash string, role user.Role) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	err := observe(r.metrics, "users_insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, role, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt,
		)
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// GetByEmail returns the earliest-created user with the given email,
// mirroring first-match semantics when duplicates exist.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var role string

	err := observe(r.metrics, "users_get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, username, email, password_hash, role, created_at
			 FROM users
			 WHERE email = $1
			 ORDER BY created_at ASC
			 LIMIT 1`,
			email,
		).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var role string

	err := observe(r.metrics, "users_get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, username, email, password_hash, role, created_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}
