package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/middleware"
	"github.com/atinyakov/tradejournal/internal/models"
)

// TelegramService defines the Telegram linking operations required by the
// TelegramHandler.
type TelegramService interface {
	GenerateCode(ctx context.Context, userID string) (*models.TelegramVerification, error)
	Status(ctx context.Context, userID string) (*models.TelegramStatus, error)
	Disconnect(ctx context.Context, userID string) error
}

// TelegramHandler handles the /telegram endpoints.
type TelegramHandler struct {
	TelegramService TelegramService
}

// GenerateCode handles POST /telegram/generate-code. It answers 409 when the
// account is already linked.
func (h *TelegramHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	res, err := h.TelegramService.GenerateCode(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if errors.Is(err, models.ErrConflict) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "telegram is already connected"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Status handles GET /telegram/status.
func (h *TelegramHandler) Status(w http.ResponseWriter, r *http.Request) {
	res, err := h.TelegramService.Status(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Disconnect handles POST /telegram/disconnect.
func (h *TelegramHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.TelegramService.Disconnect(r.Context(), middleware.GetUserIDFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Telegram disconnected successfully"})
}
