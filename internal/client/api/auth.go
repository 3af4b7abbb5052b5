package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/models"
)

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: pathLogin, body: creds, noRefresh: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: pathRegister, body: creds, noRefresh: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user owning the current access token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.UserResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &Error{Kind: KindServer, Status: http.StatusOK, Message: "response has no user"}
	}
	return out.User, nil
}

// Logout revokes the current access token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", noRefresh: true}, nil)
}
