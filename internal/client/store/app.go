// Package store holds the client state: the session (AuthStore) and the trade
// list (TradesStore). Both are owned by an App built once per process.
package store

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/client/api"
	"github.com/atinyakov/tradejournal/internal/client/storage"
)

// Config describes how to build an App.
type Config struct {
	APIURL          string
	CAFile          string
	Timeout         time.Duration
	IdentityFile    string
	CredentialsFile string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RefetchOnStale  bool
	Logger          *zap.Logger
	// HTTPClient overrides the client built from CAFile and Timeout.
	HTTPClient *http.Client
}

// App is the root container of the client state.
type App struct {
	API    *api.Client
	Auth   *AuthStore
	Trades *TradesStore

	http *http.Client
	log  *zap.Logger
}

// NewApp wires the credential holder, identity cache, API client and both
// stores. A failed token refresh in the API client logs the user out, and
// every logout empties the trade list.
func NewApp(cfg Config) (*App, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.APIURL == "" {
		return nil, errors.New("api url is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		var err error
		hc, err = api.NewHTTPClient(cfg.CAFile, cfg.Timeout)
		if err != nil {
			return nil, err
		}
	}

	var creds storage.CredentialStore = storage.NewMemoryCredentials()
	if cfg.CredentialsFile != "" {
		fc, err := storage.OpenFileCredentials(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		creds = fc
	}
	identity := storage.NewIdentityCache(cfg.IdentityFile)

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}

	client := api.New(cfg.APIURL, creds,
		api.WithHTTPClient(hc),
		api.WithAccessTTL(accessTTL),
		api.WithLogger(log.Named("api")),
	)

	tradeOpts := []TradesOption{WithTradesLogger(log.Named("trades"))}
	if cfg.RefetchOnStale {
		tradeOpts = append(tradeOpts, WithRefetchOnStale())
	}
	trades := NewTradesStore(client, tradeOpts...)

	auth := NewAuthStore(client, creds, identity,
		WithAuthLogger(log.Named("auth")),
		WithTokenTTLs(accessTTL, cfg.RefreshTTL),
	)
	auth.OnLogout(trades.Reset)
	client.OnSessionExpired(auth.Logout)

	return &App{
		API:    client,
		Auth:   auth,
		Trades: trades,
		http:   hc,
		log:    log,
	}, nil
}

// Close releases idle connections and flushes the logger.
func (a *App) Close() error {
	a.http.CloseIdleConnections()
	_ = a.log.Sync()
	return nil
}
