package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/models"
)

// ListTrades returns every trade of the current user.
func (c *Client) ListTrades(ctx context.Context) (*models.TradeList, error) {
	var out models.TradeList
	if err := c.do(ctx, request{method: http.MethodGet, path: "/trades/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrade returns one trade.
func (c *Client) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	var out models.TradeResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/trades/%s", id)}, &out); err != nil {
		return nil, err
	}
	if out.Trade == nil {
		return nil, missingTrade()
	}
	return out.Trade, nil
}

// CreateTrade stores a new trade and returns the server representation.
func (c *Client) CreateTrade(ctx context.Context, data models.TradeCreate) (*models.TradeResponse, error) {
	var out models.TradeResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/trades/", body: data}, &out); err != nil {
		return nil, err
	}
	if out.Trade == nil {
		return nil, missingTrade()
	}
	return &out, nil
}

// UpdateTrade sends the set fields of patch and returns the full updated trade.
func (c *Client) UpdateTrade(ctx context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error) {
	var out models.TradeResponse
	if err := c.do(ctx, request{method: http.MethodPut, path: pathf("/trades/%s", id), body: patch}, &out); err != nil {
		return nil, err
	}
	if out.Trade == nil {
		return nil, missingTrade()
	}
	return &out, nil
}

// DeleteTrade removes one trade.
func (c *Client) DeleteTrade(ctx context.Context, id string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.do(ctx, request{method: http.MethodDelete, path: pathf("/trades/%s", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTrades removes several trades in a single call.
func (c *Client) DeleteTrades(ctx context.Context, ids []string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/trades/delete-multiple",
		body:   models.DeleteTradesRequest{IDs: ids},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func missingTrade() *Error {
	return &Error{Kind: KindServer, Status: http.StatusOK, Message: "response has no trade"}
}
