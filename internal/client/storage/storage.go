// Package storage keeps the client-side session material: short and long lived
// credentials, and the last known identity of the user.
package storage

import (
	"sync"
	"time"
)

// Credential names a stored secret.
type Credential string

const (
	// AccessToken authorizes API calls.
	AccessToken Credential = "access_token"
	// RefreshToken exchanges for a new access token.
	RefreshToken Credential = "refresh_token"
)

// CredentialStore stores credentials with a lifetime. Expired credentials are
// reported as missing.
type CredentialStore interface {
	Set(name Credential, value string, ttl time.Duration) error
	Get(name Credential) (string, bool)
	Clear(name Credential) error
}

type entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemoryCredentials is a CredentialStore that lives only as long as the process.
type MemoryCredentials struct {
	mu      sync.Mutex
	entries map[Credential]entry
	now     func() time.Time
}

// NewMemoryCredentials returns an empty in-memory credential holder.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{
		entries: make(map[Credential]entry),
		now:     time.Now,
	}
}

func (m *MemoryCredentials) Set(name Credential, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = entry{Value: value, ExpiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryCredentials) Get(name Credential) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return "", false
	}
	if !m.now().Before(e.ExpiresAt) {
		delete(m.entries, name)
		return "", false
	}
	return e.Value, true
}

func (m *MemoryCredentials) Clear(name Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

// ClearAll removes every credential from s, returning the first error.
func ClearAll(s CredentialStore) error {
	if err := s.Clear(AccessToken); err != nil {
		return err
	}
	return s.Clear(RefreshToken)
}
