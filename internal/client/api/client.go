// Package api is the HTTP client for the trade journal REST API. It injects
// the bearer access token, refreshes it once on 401 and maps every failure to
// an *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/tradejournal/internal/client/storage"
	"github.com/atinyakov/tradejournal/internal/models"
)

// DefaultAccessTTL is the lifetime given to access tokens obtained by refresh.
const DefaultAccessTTL = 24 * time.Hour

const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathRefresh  = "/auth/refresh"
)

// Client talks to the API on behalf of the stores.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     storage.CredentialStore
	accessTTL time.Duration
	log       *zap.Logger

	refreshes singleflight.Group

	hookMu    sync.RWMutex
	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAccessTTL sets the lifetime of refreshed access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(c *Client) { c.accessTTL = ttl }
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, creds storage.CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		creds:     creds,
		accessTTL: DefaultAccessTTL,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnSessionExpired registers fn to run after a failed token refresh, once
// both credentials have been cleared.
func (c *Client) OnSessionExpired(fn func()) {
	c.hookMu.Lock()
	c.onExpired = fn
	c.hookMu.Unlock()
}

func (c *Client) sessionExpired() {
	c.hookMu.RLock()
	fn := c.onExpired
	c.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// bearer overrides the stored access token.
	bearer string
	// noRefresh disables the refresh-and-retry on 401.
	noRefresh bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return transportError("encode request", err)
		}
		payload = b
	}

	token := r.bearer
	if token == "" {
		token, _ = c.creds.Get(storage.AccessToken)
	}

	status, body, err := c.send(ctx, r, payload, token)
	if err != nil {
		c.log.Warn("api request failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return err
	}

	if status == http.StatusUnauthorized && !r.noRefresh && r.bearer == "" {
		fresh, rerr := c.refreshAccess(ctx, token)
		if rerr != nil {
			return rerr
		}
		status, body, err = c.send(ctx, r, payload, fresh)
		if err != nil {
			c.log.Warn("api retry failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
			return err
		}
	}

	return c.decode(r, status, body, out)
}

func (c *Client) send(ctx context.Context, r request, payload []byte, token string) (int, []byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, rd)
	if err != nil {
		return 0, nil, transportError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, transportError("read response", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) decode(r request, status int, body []byte, out any) error {
	if status < 200 || status > 299 {
		var er models.ErrorResponse
		_ = json.Unmarshal(body, &er)
		apiErr := statusError(status, er.Error, er.Details)
		c.log.Warn("api error response",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", status),
			zap.String("error", apiErr.Message),
		)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return transportError("decode response", err)
	}
	c.log.Debug("api request ok", zap.String("method", r.method), zap.String("path", r.path), zap.Int("status", status))
	return nil
}

func classifyTransport(err error) *Error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return transportError("request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return transportError("request canceled", err)
	}
	return transportError("network error, check your connection", err)
}

// refreshAccess obtains a new access token after a 401 for stale. Concurrent
// callers share one refresh call. If another caller already replaced stale,
// the newer token is returned without a round trip.
func (c *Client) refreshAccess(ctx context.Context, stale string) (string, error) {
	if cur, ok := c.creds.Get(storage.AccessToken); ok && cur != stale {
		return cur, nil
	}
	v, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		res, err := c.Refresh(ctx)
		if err != nil {
			c.log.Warn("token refresh failed, clearing session", zap.Error(err))
			if cerr := storage.ClearAll(c.creds); cerr != nil {
				c.log.Error("failed to clear credentials", zap.Error(cerr))
			}
			c.sessionExpired()
			return "", err
		}
		if err := c.creds.Set(storage.AccessToken, res.AccessToken, c.accessTTL); err != nil {
			return "", transportError("store access token", err)
		}
		return res.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ErrNoRefreshToken is returned by Refresh when no refresh credential is stored.
var ErrNoRefreshToken = &Error{Kind: KindUnauthorized, Message: "no refresh token available"}

// Refresh exchanges the stored refresh token for a new access token. It does
// not store the result.
func (c *Client) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	refresh, ok := c.creds.Get(storage.RefreshToken)
	if !ok {
		return nil, ErrNoRefreshToken
	}
	var out models.RefreshResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      pathRefresh,
		body:      struct{}{},
		bearer:    refresh,
		noRefresh: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindUnauthorized, Status: http.StatusOK, Message: "refresh response has no access token"}
	}
	return &out, nil
}

func pathf(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}
