// Package config provides functionality for managing configuration options
// of the API server using command-line flags, a config file and environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used when neither a flag, the config file nor the
// environment sets an option.
const (
	DefaultAddress         = "localhost:8080"
	DefaultConfigPath      = "config.yaml"
	DefaultLogLevel        = "info"
	DefaultAccessTTL       = 24 * time.Hour
	DefaultRefreshTTL      = 7 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour
	DefaultTelegramBot     = "tradejournal_bot"
)

// Options holds the configuration values for the server.
type Options struct {
	// Address is the server's listening address (ip:port).
	Address string
	// DatabaseDSN is the PostgreSQL connection string.
	DatabaseDSN string
	// Config is the path to the config file.
	Config string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFile, when set, also receives logs through a rotated file.
	LogFile string
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string
	// AccessTTL and RefreshTTL bound the lifetime of issued tokens.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval time.Duration
	// TelegramBot is the bot users send their link code to.
	TelegramBot string
}

// fileOptions is the config file layout. Durations are strings such as "24h".
type fileOptions struct {
	Address         string `json:"server_address" yaml:"server_address"`
	DatabaseDSN     string `json:"database_dsn" yaml:"database_dsn"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
	LogFile         string `json:"log_file" yaml:"log_file"`
	TLSCert         string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey          string `json:"tls_key" yaml:"tls_key"`
	AccessTTL       string `json:"access_ttl" yaml:"access_ttl"`
	RefreshTTL      string `json:"refresh_ttl" yaml:"refresh_ttl"`
	CleanupInterval string `json:"cleanup_interval" yaml:"cleanup_interval"`
	TelegramBot     string `json:"telegram_bot" yaml:"telegram_bot"`
}

// Parse reads options from os.Args and the environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:], os.LookupEnv)
}

// ParseArgs resolves options with the precedence defaults < config file <
// flags < environment.
func ParseArgs(args []string, lookupEnv func(string) (string, bool)) (*Options, error) {
	opts := &Options{
		Address:         DefaultAddress,
		Config:          DefaultConfigPath,
		LogLevel:        DefaultLogLevel,
		AccessTTL:       DefaultAccessTTL,
		RefreshTTL:      DefaultRefreshTTL,
		CleanupInterval: DefaultCleanupInterval,
		TelegramBot:     DefaultTelegramBot,
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := *opts
	fs.StringVar(&flags.Address, "a", opts.Address, "run on ip:port server")
	fs.StringVar(&flags.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&flags.Config, "config", opts.Config, "path to config file")
	fs.StringVar(&flags.Config, "c", opts.Config, "path to config file (shorthand)")
	fs.StringVar(&flags.LogLevel, "l", opts.LogLevel, "log level")
	fs.StringVar(&flags.LogFile, "log-file", "", "rotated log file")
	fs.StringVar(&flags.TLSCert, "tls-cert", "", "server certificate (PEM)")
	fs.StringVar(&flags.TLSKey, "tls-key", "", "server private key (PEM)")
	fs.DurationVar(&flags.AccessTTL, "access-ttl", opts.AccessTTL, "access token lifetime")
	fs.DurationVar(&flags.RefreshTTL, "refresh-ttl", opts.RefreshTTL, "refresh token lifetime")
	fs.DurationVar(&flags.CleanupInterval, "cleanup-interval", opts.CleanupInterval, "expired session purge interval")
	fs.StringVar(&flags.TelegramBot, "telegram-bot", opts.TelegramBot, "telegram bot username")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts.Config = flags.Config
	if v, ok := lookupEnv("CONFIG"); ok && v != "" {
		opts.Config = v
	}
	if err := opts.loadFile(opts.Config, set["c"] || set["config"]); err != nil {
		return nil, err
	}

	override := func(name string, dst *string, src string) {
		if set[name] {
			*dst = src
		}
	}
	override("a", &opts.Address, flags.Address)
	override("d", &opts.DatabaseDSN, flags.DatabaseDSN)
	override("l", &opts.LogLevel, flags.LogLevel)
	override("log-file", &opts.LogFile, flags.LogFile)
	override("tls-cert", &opts.TLSCert, flags.TLSCert)
	override("tls-key", &opts.TLSKey, flags.TLSKey)
	override("telegram-bot", &opts.TelegramBot, flags.TelegramBot)
	if set["access-ttl"] {
		opts.AccessTTL = flags.AccessTTL
	}
	if set["refresh-ttl"] {
		opts.RefreshTTL = flags.RefreshTTL
	}
	if set["cleanup-interval"] {
		opts.CleanupInterval = flags.CleanupInterval
	}

	if v, ok := lookupEnv("SERVER_ADDRESS"); ok && v != "" {
		opts.Address = v
	}
	if v, ok := lookupEnv("DATABASE_DSN"); ok && v != "" {
		opts.DatabaseDSN = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok && v != "" {
		opts.LogLevel = v
	}
	if v, ok := lookupEnv("TELEGRAM_BOT_USERNAME"); ok && v != "" {
		opts.TelegramBot = v
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadFile merges the config file into opts. A missing file is only an
// error when it was named explicitly.
func (o *Options) loadFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fo fileOptions
	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, &fo); err != nil {
		if jerr := json.Unmarshal(data, &fo); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&o.Address, fo.Address)
	setString(&o.DatabaseDSN, fo.DatabaseDSN)
	setString(&o.LogLevel, fo.LogLevel)
	setString(&o.LogFile, fo.LogFile)
	setString(&o.TLSCert, fo.TLSCert)
	setString(&o.TLSKey, fo.TLSKey)
	setString(&o.TelegramBot, fo.TelegramBot)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"access_ttl", fo.AccessTTL, &o.AccessTTL},
		{"refresh_ttl", fo.RefreshTTL, &o.RefreshTTL},
		{"cleanup_interval", fo.CleanupInterval, &o.CleanupInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate checks option combinations that cannot work.
func (o *Options) Validate() error {
	if o.Address == "" {
		return errors.New("server address is required")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if o.AccessTTL <= 0 || o.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if o.AccessTTL > o.RefreshTTL {
		return errors.New("access token lifetime must not exceed refresh token lifetime")
	}
	if o.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
