package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileCredentials is a CredentialStore persisted as a JSON file readable only
// by the owner. Every change is written through.
type FileCredentials struct {
	path    string
	mu      sync.Mutex
	entries map[Credential]entry
	now     func() time.Time
}

// OpenFileCredentials loads credentials from path. A missing file yields an
// empty store.
func OpenFileCredentials(path string) (*FileCredentials, error) {
	fc := &FileCredentials{
		path:    path,
		entries: make(map[Credential]entry),
		now:     time.Now,
	}
	if err := fc.load(); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *FileCredentials) load() error {
	f, err := os.Open(fc.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&fc.entries); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	return nil
}

// save must be called with mu held.
func (fc *FileCredentials) save() error {
	if err := os.MkdirAll(filepath.Dir(fc.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	b, err := json.Marshal(fc.entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fc.path, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (fc *FileCredentials) Set(name Credential, value string, ttl time.Duration) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries[name] = entry{Value: value, ExpiresAt: fc.now().Add(ttl)}
	return fc.save()
}

func (fc *FileCredentials) Get(name Credential) (string, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	e, ok := fc.entries[name]
	if !ok || !fc.now().Before(e.ExpiresAt) {
		return "", false
	}
	return e.Value, true
}

func (fc *FileCredentials) Clear(name Credential) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.entries[name]; !ok {
		return nil
	}
	delete(fc.entries, name)
	return fc.save()
}
