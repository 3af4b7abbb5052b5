package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/tradejournal/internal/models"
)

// DefaultTelegramCodeTTL is how long a verification code can be sent to the bot.
const DefaultTelegramCodeTTL = 10 * time.Minute

// codeAttempts bounds retries when a generated code collides with another user's.
const codeAttempts = 3

// ErrTelegramConnected is returned when a code is requested for an account
// that is already linked.
var ErrTelegramConnected = fmt.Errorf("telegram is already connected: %w", models.ErrConflict)

// TelegramRepository defines the persistence of Telegram links.
type TelegramRepository interface {
	// SaveTelegramCode sets the pending code of a user. It returns
	// models.ErrConflict when the code belongs to another user.
	SaveTelegramCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	TelegramLink(ctx context.Context, userID string) (*models.TelegramLink, error)
	DeleteTelegramLink(ctx context.Context, userID string) error
}

// TelegramService issues link codes and reports the link state. Confirming
// a code is the bot's job.
type TelegramService struct {
	repo        TelegramRepository
	botUsername string
	codeTTL     time.Duration
	now         func() time.Time
	newCode     func() string
}

// NewTelegramService constructs a TelegramService for the named bot.
func NewTelegramService(repo TelegramRepository, botUsername string) *TelegramService {
	return &TelegramService{
		repo:        repo,
		botUsername: botUsername,
		codeTTL:     DefaultTelegramCodeTTL,
		now:         time.Now,
		newCode:     newVerificationCode,
	}
}

// newVerificationCode returns 8 upper-case hex characters.
func newVerificationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// GenerateCode issues a fresh verification code, replacing a pending one.
func (s *TelegramService) GenerateCode(ctx context.Context, userID string) (*models.TelegramVerification, error) {
	link, err := s.repo.TelegramLink(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if link != nil && link.Connected() {
		return nil, ErrTelegramConnected
	}

	expires := s.now().UTC().Add(s.codeTTL)
	for range codeAttempts {
		code := s.newCode()
		err = s.repo.SaveTelegramCode(ctx, userID, code, expires)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &models.TelegramVerification{VerificationCode: code, ExpiresAt: expires, BotUsername: s.botUsername}, nil
	}
	return nil, fmt.Errorf("generate telegram code: %w", err)
}

// Status reports whether the user's Telegram account is linked.
func (s *TelegramService) Status(ctx context.Context, userID string) (*models.TelegramStatus, error) {
	link, err := s.repo.TelegramLink(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.TelegramStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !link.Connected() {
		return &models.TelegramStatus{}, nil
	}
	return &models.TelegramStatus{Connected: true, Username: link.Username, ConnectedAt: link.ConnectedAt}, nil
}

// Disconnect removes the user's link. It returns models.ErrNotFound when
// there is nothing to remove.
func (s *TelegramService) Disconnect(ctx context.Context, userID string) error {
	return s.repo.DeleteTelegramLink(ctx, userID)
}
