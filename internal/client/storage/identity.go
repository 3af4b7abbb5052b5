package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/tradejournal/internal/models"
)

// IdentityCache persists the last authenticated user between runs. It never
// holds tokens.
type IdentityCache struct {
	path string
	mu   sync.Mutex
}

type identityFile struct {
	User *models.User `json:"user"`
}

// NewIdentityCache returns a cache stored at path. An empty path keeps nothing.
func NewIdentityCache(path string) *IdentityCache {
	return &IdentityCache{path: path}
}

// Load returns the cached user, or nil when nothing is cached.
func (c *IdentityCache) Load() (*models.User, error) {
	if c.path == "" {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read identity cache: %w", err)
	}
	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode identity cache: %w", err)
	}
	return f.User, nil
}

// Save replaces the cached user. Saving nil is the same as Clear.
func (c *IdentityCache) Save(u *models.User) error {
	if u == nil {
		return c.Clear()
	}
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	b, err := json.Marshal(identityFile{User: u})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, b, 0o600)
}

// Clear removes the cached user.
func (c *IdentityCache) Clear() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity cache: %w", err)
	}
	return nil
}
