// Package config loads the client settings from flags, environment variables
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/client/api"
	"github.com/atinyakov/tradejournal/internal/client/store"
)

// EnvPrefix is prepended to every environment variable, e.g. TRADEJOURNAL_API_URL.
const EnvPrefix = "TRADEJOURNAL"

// Keys understood in the config file, the environment and the flags.
const (
	KeyConfigFile      = "config"
	KeyAPIURL          = "api_url"
	KeyCAFile          = "ca_file"
	KeyTimeout         = "timeout"
	KeyIdentityFile    = "identity_file"
	KeyCredentialsFile = "credentials_file"
	KeyAccessTTL       = "access_ttl"
	KeyRefreshTTL      = "refresh_ttl"
	KeyLogLevel        = "log_level"
	KeyLogFile         = "log_file"
	KeyRefetchOnStale  = "refetch_on_stale"
)

// Client holds the resolved client settings.
type Client struct {
	APIURL          string        `mapstructure:"api_url"`
	CAFile          string        `mapstructure:"ca_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
	IdentityFile    string        `mapstructure:"identity_file"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	RefetchOnStale  bool          `mapstructure:"refetch_on_stale"`
}

// DefaultDir returns the directory holding the config file and the identity cache.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tradejournal"
	}
	return filepath.Join(dir, "tradejournal")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAPIURL, "http://localhost:8080")
	v.SetDefault(KeyTimeout, api.DefaultTimeout)
	v.SetDefault(KeyIdentityFile, filepath.Join(DefaultDir(), "identity.json"))
	v.SetDefault(KeyCredentialsFile, "")
	v.SetDefault(KeyAccessTTL, store.DefaultAccessTTL)
	v.SetDefault(KeyRefreshTTL, store.DefaultRefreshTTL)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyRefetchOnStale, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the persistent flags on cmd and binds them to v.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	fs := cmd.PersistentFlags()
	fs.String(KeyConfigFile, "", "config file (yaml, json or toml)")
	fs.String("api-url", v.GetString(KeyAPIURL), "API base URL")
	fs.String("ca-file", "", "PEM bundle with extra trusted CAs")
	fs.Duration(KeyTimeout, v.GetDuration(KeyTimeout), "HTTP request timeout")
	fs.String("identity-file", v.GetString(KeyIdentityFile), "cached identity file")
	fs.String("credentials-file", "", "persist tokens to this file (memory only when empty)")
	fs.Duration("access-ttl", v.GetDuration(KeyAccessTTL), "lifetime of a stored access token")
	fs.Duration("refresh-ttl", v.GetDuration(KeyRefreshTTL), "lifetime of a stored refresh token")
	fs.String("log-level", v.GetString(KeyLogLevel), "log level (debug, info, warn, error)")
	fs.String("log-file", "", "also write logs to this rotated file")
	fs.Bool("refetch-on-stale", false, "refetch the trade list when an update misses the local entry")

	bindings := map[string]string{
		KeyConfigFile:      KeyConfigFile,
		KeyAPIURL:          "api-url",
		KeyCAFile:          "ca-file",
		KeyTimeout:         KeyTimeout,
		KeyIdentityFile:    "identity-file",
		KeyCredentialsFile: "credentials-file",
		KeyAccessTTL:       "access-ttl",
		KeyRefreshTTL:      "refresh-ttl",
		KeyLogLevel:        "log-level",
		KeyLogFile:         "log-file",
		KeyRefetchOnStale:  "refetch-on-stale",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes the merged settings.
// An explicitly named file must exist; the default location is optional.
func Load(v *viper.Viper) (*Client, error) {
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Client{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("access_ttl and refresh_ttl must be positive")
	}
	return nil
}

// StoreConfig converts the settings into the App configuration.
func (c *Client) StoreConfig(log *zap.Logger) store.Config {
	return store.Config{
		APIURL:          c.APIURL,
		CAFile:          c.CAFile,
		Timeout:         c.Timeout,
		IdentityFile:    c.IdentityFile,
		CredentialsFile: c.CredentialsFile,
		AccessTTL:       c.AccessTTL,
		RefreshTTL:      c.RefreshTTL,
		RefetchOnStale:  c.RefetchOnStale,
		Logger:          log,
	}
}
