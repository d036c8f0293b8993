package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the users table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS users (
            id            UUID PRIMARY KEY,
            phone         TEXT NOT NULL UNIQUE,
            role          TEXT NOT NULL,
            pin_hash      BYTEA NOT NULL,
            token_version INT NOT NULL DEFAULT 0,
            created_at    TIMESTAMPTZ NOT NULL,
            last_login    TIMESTAMPTZ
        );`
	_, err := r.db.Exec(ctx, ddl)
	return err
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, phone, role, pin_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, user.Phone, user.Role, user.PINHash, user.TokenVersion, user.CreatedAt.UTC())
	return err
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, phone, role, pin_hash, token_version, created_at, last_login
         FROM users WHERE phone = $1`, phone))
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, phone, role, pin_hash, token_version, created_at, last_login
         FROM users WHERE id = $1`, userID))
}

// UpdateTokenVersion bumps the token version, invalidating issued tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLogin records the last successful login time.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), userID)
	return err
}

func (r *PostgresRepository) scanOne(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		user      User
		createdAt time.Time
		lastLogin *time.Time
	)
	if err := row.Scan(&id, &user.Phone, &user.Role, &user.PINHash, &user.TokenVersion, &createdAt, &lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	if lastLogin != nil {
		user.LastLogin = lastLogin.UTC()
	}
	return user, nil
}
