package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.PostRepository    = (*Repository)(nil)
	_ repository.ProfileRepository = (*Repository)(nil)
)

const userColumns = `id, name, username, email, avatar, password_hash, created_at`

// CreateUser inserts a user, translating unique violations into field-specific
// sentinel errors so callers can report which credential collided.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, name, username, email, avatar, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Username, user.Email, user.Avatar, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return repository.ErrDuplicateEmail
			case "users_username_key":
				return repository.ErrDuplicateUsername
			}
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// GetUserByEmailOrUsername returns a user matching either credential. Used by
// registration to name the colliding field before attempting an insert.
func (r *Repository) GetUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $2 LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, email, username))
}

// DeleteUser removes the user row. Owned rows cascade at the schema level.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Avatar, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, asNotFound(err)
	}
	return &u, nil
}

// asNotFound maps no-rows results and malformed uuid input (22P02) onto
// ErrNotFound, so an unparseable id behaves like a missing record rather
// than a server fault.
func asNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return repository.ErrNotFound
	}
	return err
}
