package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/tradejournal/internal/models"
)

type mockCatalogRepo struct {
	SearchTickersFunc func(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error)
	SearchTagsFunc    func(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error)
}

func (m *mockCatalogRepo) SearchTickers(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error) {
	return m.SearchTickersFunc(ctx, query, limit, offset)
}
func (m *mockCatalogRepo) SearchTags(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error) {
	return m.SearchTagsFunc(ctx, query, limit, offset)
}

func TestSearchTickers_Paging(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantLimit   int
		wantOffset  int
		wantPage    int
		wantPerPage int
	}{
		{"defaults", 0, 0, 10, 0, 1, 10},
		{"third page", 3, 5, 5, 10, 3, 5},
		{"capped page size", 1, 1000, MaxPerPage, 0, 1, MaxPerPage},
		{"negative page", -2, 10, 10, 0, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCatalogRepo{
				SearchTickersFunc: func(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error) {
					if query != "aa" {
						t.Errorf("query = %q; want trimmed %q", query, "aa")
					}
					if limit != tt.wantLimit || offset != tt.wantOffset {
						t.Errorf("limit, offset = %d, %d; want %d, %d", limit, offset, tt.wantLimit, tt.wantOffset)
					}
					return []models.Ticker{{ID: "tk1"}}, 42, nil
				},
			}
			page, err := NewCatalogService(repo).SearchTickers(context.Background(), " aa ", tt.page, tt.perPage)
			if err != nil {
				t.Fatalf("SearchTickers returned error: %v", err)
			}
			if page.Page != tt.wantPage || page.PerPage != tt.wantPerPage || page.Total != 42 || len(page.Tickers) != 1 {
				t.Errorf("unexpected page: %+v", page)
			}
		})
	}
}

func TestSearchTags(t *testing.T) {
	repo := &mockCatalogRepo{
		SearchTagsFunc: func(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error) {
			if limit != DefaultTagsPerPage || offset != DefaultTagsPerPage {
				t.Errorf("limit, offset = %d, %d", limit, offset)
			}
			return []models.Tag{{ID: "g1", Name: "swing"}}, 21, nil
		},
	}
	page, err := NewCatalogService(repo).SearchTags(context.Background(), "sw", 2, 0)
	if err != nil {
		t.Fatalf("SearchTags returned error: %v", err)
	}
	if page.PerPage != DefaultTagsPerPage || page.Page != 2 || page.Tags[0].Name != "swing" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestSearch_Error(t *testing.T) {
	wantErr := errors.New("db error")
	repo := &mockCatalogRepo{
		SearchTickersFunc: func(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error) {
			return nil, 0, wantErr
		},
		SearchTagsFunc: func(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error) {
			return nil, 0, wantErr
		},
	}
	svc := NewCatalogService(repo)
	if _, err := svc.SearchTickers(context.Background(), "", 1, 1); !errors.Is(err, wantErr) {
		t.Errorf("SearchTickers error = %v", err)
	}
	if _, err := svc.SearchTags(context.Background(), "", 1, 1); !errors.Is(err, wantErr) {
		t.Errorf("SearchTags error = %v", err)
	}
}
