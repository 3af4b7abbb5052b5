package service

import (
	"context"
	"strings"

	"github.com/atinyakov/tradejournal/internal/models"
)

// Page size limits of catalog searches.
const (
	DefaultTickersPerPage = 10
	DefaultTagsPerPage    = 20
	MaxPerPage            = 100
)

// CatalogRepository searches tickers and tags by prefix.
type CatalogRepository interface {
	SearchTickers(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error)
	SearchTags(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error)
}

// CatalogService serves paginated ticker and tag searches.
type CatalogService struct {
	repo CatalogRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// SearchTickers returns one page of tickers matching query.
func (s *CatalogService) SearchTickers(ctx context.Context, query string, page, perPage int) (*models.TickerPage, error) {
	page, perPage = clampPage(page, perPage, DefaultTickersPerPage)
	tickers, total, err := s.repo.SearchTickers(ctx, strings.TrimSpace(query), perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &models.TickerPage{Tickers: tickers, Total: total, Page: page, PerPage: perPage}, nil
}

// SearchTags returns one page of tags matching query.
func (s *CatalogService) SearchTags(ctx context.Context, query string, page, perPage int) (*models.TagPage, error) {
	page, perPage = clampPage(page, perPage, DefaultTagsPerPage)
	tags, total, err := s.repo.SearchTags(ctx, strings.TrimSpace(query), perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &models.TagPage{Tags: tags, Total: total, Page: page, PerPage: perPage}, nil
}

func clampPage(page, perPage, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = def
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}
