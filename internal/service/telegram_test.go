package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/atinyakov/tradejournal/internal/models"
)

type mockTelegramRepo struct {
	SaveTelegramCodeFunc   func(ctx context.Context, userID, code string, expiresAt time.Time) error
	TelegramLinkFunc       func(ctx context.Context, userID string) (*models.TelegramLink, error)
	DeleteTelegramLinkFunc func(ctx context.Context, userID string) error
}

func (m *mockTelegramRepo) SaveTelegramCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return m.SaveTelegramCodeFunc(ctx, userID, code, expiresAt)
}
func (m *mockTelegramRepo) TelegramLink(ctx context.Context, userID string) (*models.TelegramLink, error) {
	return m.TelegramLinkFunc(ctx, userID)
}
func (m *mockTelegramRepo) DeleteTelegramLink(ctx context.Context, userID string) error {
	return m.DeleteTelegramLinkFunc(ctx, userID)
}

func noLink(ctx context.Context, userID string) (*models.TelegramLink, error) {
	return nil, models.ErrNotFound
}

func newTestTelegramService(repo TelegramRepository, codes ...string) *TelegramService {
	svc := NewTelegramService(repo, "journal_bot")
	svc.now = func() time.Time { return epoch }
	next := 0
	svc.newCode = func() string {
		c := codes[next%len(codes)]
		next++
		return c
	}
	return svc
}

func TestTelegramGenerateCode(t *testing.T) {
	var saved []string
	repo := &mockTelegramRepo{
		TelegramLinkFunc: noLink,
		SaveTelegramCodeFunc: func(ctx context.Context, userID, code string, expiresAt time.Time) error {
			if userID != "u1" || !expiresAt.Equal(epoch.Add(DefaultTelegramCodeTTL)) {
				t.Errorf("SaveTelegramCode(%q, %q, %v)", userID, code, expiresAt)
			}
			saved = append(saved, code)
			if code == "TAKEN" {
				return models.ErrConflict
			}
			return nil
		},
	}
	svc := newTestTelegramService(repo, "TAKEN", "FRESH")

	got, err := svc.GenerateCode(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	if got.VerificationCode != "FRESH" || got.BotUsername != "journal_bot" || !got.ExpiresAt.Equal(epoch.Add(DefaultTelegramCodeTTL)) {
		t.Errorf("unexpected verification: %+v", got)
	}
	if len(saved) != 2 {
		t.Errorf("saved codes = %v; want a retry after the collision", saved)
	}
}

func TestTelegramGenerateCode_Errors(t *testing.T) {
	connectedAt := epoch.Add(-time.Hour)
	dbErr := errors.New("db down")

	tests := []struct {
		name string
		link func(ctx context.Context, userID string) (*models.TelegramLink, error)
		save error
		want error
	}{
		{"already connected", func(context.Context, string) (*models.TelegramLink, error) {
			return &models.TelegramLink{UserID: "u1", ConnectedAt: &connectedAt}, nil
		}, nil, models.ErrConflict},
		{"lookup fails", func(context.Context, string) (*models.TelegramLink, error) { return nil, dbErr }, nil, dbErr},
		{"save fails", noLink, dbErr, dbErr},
		{"every code taken", noLink, models.ErrConflict, models.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTelegramRepo{
				TelegramLinkFunc: tt.link,
				SaveTelegramCodeFunc: func(context.Context, string, string, time.Time) error {
					return tt.save
				},
			}
			_, err := newTestTelegramService(repo, "C1").GenerateCode(context.Background(), "u1")
			if !errors.Is(err, tt.want) {
				t.Errorf("GenerateCode error = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestTelegramStatus(t *testing.T) {
	connectedAt := epoch.Add(-time.Hour)
	username := "alice_trades"
	code := "PENDING1"

	tests := []struct {
		name string
		link *models.TelegramLink
		err  error
		want models.TelegramStatus
	}{
		{"never linked", nil, models.ErrNotFound, models.TelegramStatus{}},
		{"code pending", &models.TelegramLink{UserID: "u1", Code: &code}, nil, models.TelegramStatus{}},
		{"connected", &models.TelegramLink{UserID: "u1", Username: &username, ConnectedAt: &connectedAt}, nil,
			models.TelegramStatus{Connected: true, Username: &username, ConnectedAt: &connectedAt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTelegramRepo{
				TelegramLinkFunc: func(context.Context, string) (*models.TelegramLink, error) { return tt.link, tt.err },
			}
			got, err := newTestTelegramService(repo, "C1").Status(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Status returned error: %v", err)
			}
			if got.Connected != tt.want.Connected || got.Username != tt.want.Username || got.ConnectedAt != tt.want.ConnectedAt {
				t.Errorf("Status = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestTelegramDisconnect(t *testing.T) {
	repo := &mockTelegramRepo{
		DeleteTelegramLinkFunc: func(ctx context.Context, userID string) error {
			if userID != "u1" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	svc := newTestTelegramService(repo, "C1")
	if err := svc.Disconnect(context.Background(), "u1"); err != nil {
		t.Errorf("Disconnect returned error: %v", err)
	}
	if err := svc.Disconnect(context.Background(), "u2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Disconnect error = %v; want ErrNotFound", err)
	}
}

func TestNewVerificationCode(t *testing.T) {
	code := newVerificationCode()
	if !regexp.MustCompile(`^[0-9A-F]{8}$`).MatchString(code) {
		t.Errorf("code %q is not 8 upper-case hex characters", code)
	}
}
