package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// isolate points the default config directory at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func parse(t *testing.T, args ...string) *Client {
	t.Helper()
	v := New()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, BindFlags(cmd, v))
	require.NoError(t, cmd.PersistentFlags().Parse(args))
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg := parse(t)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.CredentialsFile)
	assert.False(t, cfg.RefetchOnStale)
	assert.Equal(t, "identity.json", filepath.Base(cfg.IdentityFile))
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("TRADEJOURNAL_API_URL", "https://journal.example.com")
	t.Setenv("TRADEJOURNAL_TIMEOUT", "5s")
	t.Setenv("TRADEJOURNAL_REFETCH_ON_STALE", "true")

	cfg := parse(t)
	assert.Equal(t, "https://journal.example.com", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.RefetchOnStale)
}

func TestLoad_FlagsBeatEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TRADEJOURNAL_API_URL", "https://env.example.com")

	cfg := parse(t, "--api-url", "https://flag.example.com", "--access-ttl", "1h")
	assert.Equal(t, "https://flag.example.com", cfg.APIURL)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := "api_url: https://file.example.com\nrefresh_ttl: 48h\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := parse(t, "--config", path)
	assert.Equal(t, "https://file.example.com", cfg.APIURL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DefaultDirConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv("HOME", t.TempDir())
	dir := filepath.Join(base, "tradejournal")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"api_url":"https://dir.example.com"}`), 0o600))

	cfg := parse(t)
	assert.Equal(t, "https://dir.example.com", cfg.APIURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	v := New()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, BindFlags(cmd, v))
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Client
		wantErr bool
	}{
		{"ok", Client{APIURL: "http://x", AccessTTL: time.Hour, RefreshTTL: time.Hour}, false},
		{"no url", Client{APIURL: " ", AccessTTL: time.Hour, RefreshTTL: time.Hour}, true},
		{"negative timeout", Client{APIURL: "http://x", Timeout: -time.Second, AccessTTL: time.Hour, RefreshTTL: time.Hour}, true},
		{"zero ttl", Client{APIURL: "http://x", AccessTTL: time.Hour}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := Client{
		APIURL:          "http://x",
		CAFile:          "ca.pem",
		Timeout:         time.Second,
		IdentityFile:    "id.json",
		CredentialsFile: "creds.json",
		AccessTTL:       time.Minute,
		RefreshTTL:      time.Hour,
		RefetchOnStale:  true,
	}
	log := zap.NewNop()
	sc := cfg.StoreConfig(log)

	assert.Equal(t, "http://x", sc.APIURL)
	assert.Equal(t, "ca.pem", sc.CAFile)
	assert.Equal(t, time.Second, sc.Timeout)
	assert.Equal(t, "id.json", sc.IdentityFile)
	assert.Equal(t, "creds.json", sc.CredentialsFile)
	assert.Equal(t, time.Minute, sc.AccessTTL)
	assert.Equal(t, time.Hour, sc.RefreshTTL)
	assert.True(t, sc.RefetchOnStale)
	assert.Same(t, log, sc.Logger)
}
