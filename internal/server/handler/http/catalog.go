package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/tradejournal/internal/models"
)

// CatalogService defines the search operations required by the CatalogHandler.
type CatalogService interface {
	SearchTickers(ctx context.Context, query string, page, perPage int) (*models.TickerPage, error)
	SearchTags(ctx context.Context, query string, page, perPage int) (*models.TagPage, error)
}

// CatalogHandler handles the /tickers and /tags search endpoints.
type CatalogHandler struct {
	CatalogService CatalogService
}

// pageParams reads q, page and per_page. Unparseable numbers become 0 and
// are defaulted by the service.
func pageParams(r *http.Request) (string, int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return q.Get("q"), page, perPage
}

// Tickers handles GET /tickers/.
func (h *CatalogHandler) Tickers(w http.ResponseWriter, r *http.Request) {
	q, page, perPage := pageParams(r)
	res, err := h.CatalogService.SearchTickers(r.Context(), q, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Tags handles GET /tags/.
func (h *CatalogHandler) Tags(w http.ResponseWriter, r *http.Request) {
	q, page, perPage := pageParams(r)
	res, err := h.CatalogService.SearchTags(r.Context(), q, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
