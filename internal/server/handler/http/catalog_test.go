package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/tradejournal/internal/models"
)

type searchCall struct {
	query         string
	page, perPage int
}

type fakeCatalogService struct {
	tickers searchCall
	tags    searchCall
}

func (f *fakeCatalogService) SearchTickers(ctx context.Context, query string, page, perPage int) (*models.TickerPage, error) {
	f.tickers = searchCall{query, page, perPage}
	return &models.TickerPage{Tickers: []models.Ticker{{ID: "tk1", Symbol: "AAPL"}}, Total: 1, Page: 1, PerPage: 10}, nil
}

func (f *fakeCatalogService) SearchTags(ctx context.Context, query string, page, perPage int) (*models.TagPage, error) {
	f.tags = searchCall{query, page, perPage}
	return &models.TagPage{Tags: []models.Tag{}, Page: 1, PerPage: 20}, nil
}

func TestCatalogHandler_Tickers(t *testing.T) {
	f := newFixture()

	res := f.call(t, http.MethodGet, "/tickers/?q=aa&page=2&per_page=5", "access-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[models.TickerPage](t, res)
	assert.Equal(t, "AAPL", body.Tickers[0].Symbol)
	assert.Equal(t, searchCall{"aa", 2, 5}, f.catalog.tickers)
}

func TestCatalogHandler_TagsIgnoresBadNumbers(t *testing.T) {
	f := newFixture()

	res := f.call(t, http.MethodGet, "/tags/?q=sw&page=x&per_page=", "access-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[models.TagPage](t, res)
	assert.Equal(t, 20, body.PerPage)
	assert.NotNil(t, body.Tags)
	assert.Equal(t, searchCall{"sw", 0, 0}, f.catalog.tags)
}
