// Package repository provides PostgreSQL persistence for users, sessions,
// trades, tickers and tags.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/tradejournal/internal/models"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresAuthRepository stores users and their sessions.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a PostgresAuthRepository over db.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// CreateUser inserts u. It returns models.ErrConflict when the email is taken.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone_number, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, phone_number, password_hash, is_admin, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UserByEmail returns the user registered with email.
func (r *PostgresAuthRepository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// UserByID returns the user with the given id.
func (r *PostgresAuthRepository) UserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateSession stores a newly issued token pair.
func (r *PostgresAuthRepository) CreateSession(ctx context.Context, s models.AuthSession) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (access_token, refresh_token, user_id, access_expires_at, refresh_expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.AccessToken, s.RefreshToken, s.UserID, s.AccessExpiresAt, s.RefreshExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const sessionColumns = `access_token, refresh_token, user_id, access_expires_at, refresh_expires_at`

func scanSession(row *sql.Row) (*models.AuthSession, error) {
	var s models.AuthSession
	err := row.Scan(&s.AccessToken, &s.RefreshToken, &s.UserID, &s.AccessExpiresAt, &s.RefreshExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

// SessionByAccessToken looks a session up by its access token.
func (r *PostgresAuthRepository) SessionByAccessToken(ctx context.Context, token string) (*models.AuthSession, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE access_token = $1`, token))
}

// SessionByRefreshToken looks a session up by its refresh token.
func (r *PostgresAuthRepository) SessionByRefreshToken(ctx context.Context, token string) (*models.AuthSession, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = $1`, token))
}

// RotateAccessToken replaces the access token of the session identified by
// refreshToken.
func (r *PostgresAuthRepository) RotateAccessToken(ctx context.Context, refreshToken, accessToken string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE sessions SET access_token = $1, access_expires_at = $2 WHERE refresh_token = $3
	`, accessToken, expiresAt, refreshToken)
	if err != nil {
		return fmt.Errorf("rotate access token: %w", err)
	}
	return requireAffected(res)
}

// DeleteSession revokes the session that issued accessToken.
func (r *PostgresAuthRepository) DeleteSession(ctx context.Context, accessToken string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE access_token = $1`, accessToken)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// requireAffected maps an update or delete that touched no row to models.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
