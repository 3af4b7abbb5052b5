package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/tradejournal/internal/models"
)

// Default page sizes for search endpoints.
const (
	TickersPerPage = 10
	TagsPerPage    = 20
)

func searchQuery(q string, page, perPage, defPerPage int) url.Values {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defPerPage
	}
	return url.Values{
		"q":        {q},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
}

// SearchTickers finds tickers by symbol or name prefix.
func (c *Client) SearchTickers(ctx context.Context, q string, page, perPage int) (*models.TickerPage, error) {
	var out models.TickerPage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/tickers/",
		query:  searchQuery(q, page, perPage, TickersPerPage),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchTags finds tags by name prefix.
func (c *Client) SearchTags(ctx context.Context, q string, page, perPage int) (*models.TagPage, error) {
	var out models.TagPage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/tags/",
		query:  searchQuery(q, page, perPage, TagsPerPage),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
