package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/tradejournal/internal/middleware"
	"github.com/atinyakov/tradejournal/internal/models"
)

// TradeService defines the trade operations required by the TradeHandler.
// Every call is scoped to userID.
type TradeService interface {
	List(ctx context.Context, userID string) ([]models.Trade, error)
	Get(ctx context.Context, userID, id string) (*models.Trade, error)
	Create(ctx context.Context, userID string, req models.TradeCreate) (*models.Trade, error)
	Update(ctx context.Context, userID, id string, patch models.TradePatch) (*models.Trade, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteMany(ctx context.Context, userID string, ids []string) (int64, error)
}

// TradeHandler handles the /trades endpoints.
type TradeHandler struct {
	TradeService TradeService
}

// List handles GET /trades/.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	trades, err := h.TradeService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TradeList{Trades: trades, Total: len(trades)})
}

// Get handles GET /trades/{id}.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.TradeService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TradeResponse{Trade: t})
}

// Create handles POST /trades/ and answers 201 with the stored trade.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.TradeCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.TradeService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.TradeResponse{Trade: t, Message: "Trade created successfully"})
}

// Update handles PUT /trades/{id}. Only the fields present in the body change.
func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.TradePatch
	if err := decode(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.TradeService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TradeResponse{Trade: t, Message: "Trade updated successfully"})
}

// Delete handles DELETE /trades/{id}.
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.TradeService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Trade deleted successfully"})
}

// DeleteMany handles DELETE /trades/delete-multiple with a body of ids.
func (h *TradeHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteTradesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.TradeService.DeleteMany(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: fmt.Sprintf("%d trades deleted successfully", n)})
}
