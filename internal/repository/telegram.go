package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/tradejournal/internal/models"
)

// PostgresTelegramRepository stores the Telegram link of each user.
type PostgresTelegramRepository struct {
	DB *sql.DB
}

// NewPostgresTelegramRepository creates a PostgresTelegramRepository over db.
func NewPostgresTelegramRepository(db *sql.DB) *PostgresTelegramRepository {
	return &PostgresTelegramRepository{DB: db}
}

// SaveTelegramCode sets the pending verification code of userID, replacing
// any earlier one. It returns models.ErrConflict when another user holds the
// same code.
func (r *PostgresTelegramRepository) SaveTelegramCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO telegram_links (user_id, verification_code, code_expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET verification_code = EXCLUDED.verification_code,
		    code_expires_at = EXCLUDED.code_expires_at
	`, userID, code, expiresAt)
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save telegram code: %w", err)
	}
	return nil
}

// TelegramLink returns the link record of userID.
func (r *PostgresTelegramRepository) TelegramLink(ctx context.Context, userID string) (*models.TelegramLink, error) {
	var l models.TelegramLink
	err := r.DB.QueryRowContext(ctx, `
		SELECT user_id, verification_code, code_expires_at, username, connected_at
		FROM telegram_links WHERE user_id = $1
	`, userID).Scan(&l.UserID, &l.Code, &l.CodeExpiresAt, &l.Username, &l.ConnectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select telegram link: %w", err)
	}
	return &l, nil
}

// DeleteTelegramLink removes the link record of userID.
func (r *PostgresTelegramRepository) DeleteTelegramLink(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM telegram_links WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete telegram link: %w", err)
	}
	return requireAffected(res)
}
