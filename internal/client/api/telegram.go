package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/models"
)

// GenerateTelegramCode asks for a code to send to the bot to link Telegram.
func (c *Client) GenerateTelegramCode(ctx context.Context) (*models.TelegramVerification, error) {
	var out models.TelegramVerification
	if err := c.do(ctx, request{method: http.MethodPost, path: "/telegram/generate-code"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TelegramStatus reports whether a Telegram account is linked.
func (c *Client) TelegramStatus(ctx context.Context) (*models.TelegramStatus, error) {
	var out models.TelegramStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/telegram/status"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisconnectTelegram unlinks the Telegram account.
func (c *Client) DisconnectTelegram(ctx context.Context) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/telegram/disconnect"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
