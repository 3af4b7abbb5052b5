package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/client/storage"
	"github.com/atinyakov/tradejournal/internal/models"
)

// Default credential lifetimes.
const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthAPI is the part of the API client the auth store depends on.
type AuthAPI interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error)
	Refresh(ctx context.Context) (*models.RefreshResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

// IdentityStore persists the last authenticated user between runs.
type IdentityStore interface {
	Load() (*models.User, error)
	Save(u *models.User) error
	Clear() error
}

// State is the session lifecycle state.
type State int

const (
	StateUnknown State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is a snapshot of the auth store. Authenticated is true exactly when
// User is non-nil.
type Session struct {
	User          *models.User
	Authenticated bool
	Loading       bool
	State         State
}

var (
	// ErrNoRefreshToken is returned by RefreshToken when nothing can be refreshed.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrIncompleteAuth is returned when the server omits the user or a token.
	ErrIncompleteAuth = errors.New("incomplete authentication response")
)

// AuthStore owns the identity of the logged in user.
type AuthStore struct {
	api        AuthAPI
	creds      storage.CredentialStore
	identity   IdentityStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *zap.Logger

	mu           sync.Mutex
	user         *models.User
	lastKnown    *models.User
	pending      int
	initStarted  bool
	initializing bool
	resolved     bool
	onLogout     []func()
}

// AuthOption configures an AuthStore.
type AuthOption func(*AuthStore)

// WithAuthLogger sets the store logger.
func WithAuthLogger(l *zap.Logger) AuthOption {
	return func(s *AuthStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTokenTTLs overrides the access and refresh credential lifetimes.
func WithTokenTTLs(access, refresh time.Duration) AuthOption {
	return func(s *AuthStore) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// NewAuthStore returns an auth store in StateUnknown.
func NewAuthStore(api AuthAPI, creds storage.CredentialStore, identity IdentityStore, opts ...AuthOption) *AuthStore {
	s := &AuthStore{
		api:        api,
		creds:      creds,
		identity:   identity,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnLogout registers fn to run after every logout.
func (s *AuthStore) OnLogout(fn func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

// Session returns the current session snapshot.
func (s *AuthStore) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked()
}

func (s *AuthStore) sessionLocked() Session {
	sess := Session{
		User:          cloneUser(s.user),
		Authenticated: s.user != nil,
		Loading:       s.initializing || s.pending > 0,
	}
	switch {
	case s.initializing:
		sess.State = StateLoading
	case s.user != nil:
		sess.State = StateAuthenticated
	case s.resolved:
		sess.State = StateUnauthenticated
	default:
		sess.State = StateUnknown
	}
	return sess
}

// IsAuthenticated reports whether a user is logged in.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// LastKnownUser returns the user remembered from a previous run. It is only
// a hint for display and does not mean the session is valid.
func (s *AuthStore) LastKnownUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.lastKnown)
}

func (s *AuthStore) beginPending() func() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
	}
}

// Login authenticates with email and password and stores both credentials.
func (s *AuthStore) Login(ctx context.Context, creds models.LoginCredentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	done := s.beginPending()
	defer done()

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		s.markResolved()
		s.log.Warn("login failed", zap.Error(err))
		return fmt.Errorf("login failed: %w", err)
	}
	if err := s.establish(res); err != nil {
		s.log.Warn("login failed", zap.Error(err))
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// Register creates an account and logs into it.
func (s *AuthStore) Register(ctx context.Context, creds models.RegisterCredentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	done := s.beginPending()
	defer done()

	res, err := s.api.Register(ctx, creds)
	if err != nil {
		s.markResolved()
		s.log.Warn("registration failed", zap.Error(err))
		return fmt.Errorf("registration failed: %w", err)
	}
	if err := s.establish(res); err != nil {
		s.log.Warn("registration failed", zap.Error(err))
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

func (s *AuthStore) markResolved() {
	s.mu.Lock()
	s.resolved = true
	s.mu.Unlock()
}

// establish stores the credentials of a login or registration response and
// authenticates the user.
func (s *AuthStore) establish(res *models.AuthResponse) error {
	if res == nil || res.User == nil || res.AccessToken == "" || res.RefreshToken == "" {
		s.markResolved()
		return ErrIncompleteAuth
	}
	if err := s.creds.Set(storage.AccessToken, res.AccessToken, s.accessTTL); err != nil {
		s.markResolved()
		return fmt.Errorf("store access token: %w", err)
	}
	if err := s.creds.Set(storage.RefreshToken, res.RefreshToken, s.refreshTTL); err != nil {
		_ = storage.ClearAll(s.creds)
		s.markResolved()
		return fmt.Errorf("store refresh token: %w", err)
	}
	s.authenticate(res.User)
	return nil
}

func (s *AuthStore) authenticate(u *models.User) {
	user := cloneUser(u)
	s.mu.Lock()
	s.user = user
	s.lastKnown = cloneUser(user)
	s.resolved = true
	s.mu.Unlock()

	if err := s.identity.Save(user); err != nil {
		s.log.Warn("failed to persist identity", zap.Error(err))
	}
	s.log.Debug("authenticated", zap.String("user_id", user.ID))
}

// Logout clears credentials and the user. It cannot fail; storage errors are
// only logged.
func (s *AuthStore) Logout() {
	if err := storage.ClearAll(s.creds); err != nil {
		s.log.Warn("failed to clear credentials", zap.Error(err))
	}
	if err := s.identity.Clear(); err != nil {
		s.log.Warn("failed to clear identity", zap.Error(err))
	}

	s.mu.Lock()
	s.user = nil
	s.lastKnown = nil
	s.resolved = true
	hooks := slices.Clone(s.onLogout)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	s.log.Debug("logged out")
}

// SignOut tells the server to revoke the access token, then logs out locally
// whatever the server answered.
func (s *AuthStore) SignOut(ctx context.Context) {
	if _, ok := s.creds.Get(storage.AccessToken); ok {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warn("server logout failed", zap.Error(err))
		}
	}
	s.Logout()
}

// RefreshToken exchanges the refresh credential for a new access credential.
// Any failure logs the user out.
func (s *AuthStore) RefreshToken(ctx context.Context) error {
	if _, ok := s.creds.Get(storage.RefreshToken); !ok {
		s.Logout()
		return ErrNoRefreshToken
	}

	res, err := s.api.Refresh(ctx)
	if err == nil && (res == nil || res.AccessToken == "" || res.User == nil) {
		err = ErrIncompleteAuth
	}
	if err == nil {
		err = s.creds.Set(storage.AccessToken, res.AccessToken, s.accessTTL)
	}
	if err != nil {
		s.log.Warn("token refresh failed", zap.Error(err))
		s.Logout()
		return fmt.Errorf("refresh failed: %w", err)
	}

	s.authenticate(res.User)
	return nil
}

// InitializeAuth restores the session at startup. Only the first call does
// anything; later calls return the current session.
func (s *AuthStore) InitializeAuth(ctx context.Context) Session {
	s.mu.Lock()
	if s.initStarted {
		sess := s.sessionLocked()
		s.mu.Unlock()
		return sess
	}
	s.initStarted = true
	s.initializing = true
	s.mu.Unlock()

	s.restore(ctx)

	s.mu.Lock()
	s.initializing = false
	s.resolved = true
	sess := s.sessionLocked()
	s.mu.Unlock()
	return sess
}

func (s *AuthStore) restore(ctx context.Context) {
	cached, err := s.identity.Load()
	if err != nil {
		s.log.Warn("failed to load identity cache", zap.Error(err))
	}
	s.mu.Lock()
	s.lastKnown = cached
	s.mu.Unlock()

	_, hasAccess := s.creds.Get(storage.AccessToken)
	_, hasRefresh := s.creds.Get(storage.RefreshToken)
	if !hasAccess && !hasRefresh {
		return
	}

	if hasAccess {
		user, err := s.api.Me(ctx)
		if err == nil && user != nil {
			s.authenticate(user)
			return
		}
		s.log.Info("stored access token rejected, trying refresh", zap.Error(err))
	}

	// RefreshToken logs out on every failure, including a missing token.
	if err := s.RefreshToken(ctx); err != nil {
		s.log.Info("session could not be restored", zap.Error(err))
	}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.PhoneNumber != nil {
		p := *u.PhoneNumber
		c.PhoneNumber = &p
	}
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
}
