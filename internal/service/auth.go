// Package service provides the business logic of the API server for
// authentication, trades and the ticker/tag catalog, delegating persistence
// to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/tradejournal/internal/models"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned for missing, unknown or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user. It returns models.ErrConflict when the
	// email is already registered.
	CreateUser(ctx context.Context, u *models.User) error
	// UserByEmail looks a user up by email, ignoring case.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID returns the user with the given id.
	UserByID(ctx context.Context, id string) (*models.User, error)
	CreateSession(ctx context.Context, s models.AuthSession) error
	SessionByAccessToken(ctx context.Context, token string) (*models.AuthSession, error)
	SessionByRefreshToken(ctx context.Context, token string) (*models.AuthSession, error)
	// RotateAccessToken replaces the access token of the session owning refreshToken.
	RotateAccessToken(ctx context.Context, refreshToken, accessToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, accessToken string) error
}

// AuthService implements registration, login and token handling by
// delegating to an AuthRepository.
type AuthService struct {
	repo       AuthRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
	newToken   func() string
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithTokenTTL sets the lifetimes of issued access and refresh tokens.
func WithTokenTTL(access, refresh time.Duration) AuthOption {
	return func(s *AuthService) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// NewAuthService constructs an AuthService using the provided repository.
func NewAuthService(repo AuthRepository, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:       repo,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and opens a session for it.
func (s *AuthService) Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(creds.Name),
		Email:        normalizeEmail(creds.Email),
		CreatedAt:    s.now().UTC(),
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Message = "Registration successful"
	return resp, nil
}

// Login checks the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	user, err := s.repo.UserByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Message = "Login successful"
	return resp, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	now := s.now().UTC()
	sess := models.AuthSession{
		AccessToken:      s.newToken(),
		RefreshToken:     s.newToken(),
		UserID:           user.ID,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		User:         user,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}, nil
}

// Refresh issues a new access token for a valid refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	sess, err := s.repo.SessionByRefreshToken(ctx, refreshToken)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !sess.RefreshValid(now) {
		return nil, ErrUnauthorized
	}

	expires := now.Add(s.accessTTL)
	if expires.After(sess.RefreshExpiresAt) {
		expires = sess.RefreshExpiresAt
	}
	access := s.newToken()
	if err := s.repo.RotateAccessToken(ctx, refreshToken, access, expires); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	user, err := s.userOrUnauthorized(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &models.RefreshResponse{AccessToken: access, User: user}, nil
}

// Authenticate resolves the user owning a valid access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	sess, err := s.repo.SessionByAccessToken(ctx, accessToken)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !sess.AccessValid(s.now().UTC()) {
		return nil, ErrUnauthorized
	}
	return s.userOrUnauthorized(ctx, sess.UserID)
}

func (s *AuthService) userOrUnauthorized(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.UserByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

// Logout revokes the session of accessToken. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	err := s.repo.DeleteSession(ctx, accessToken)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
