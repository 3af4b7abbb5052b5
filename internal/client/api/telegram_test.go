package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/tradejournal/internal/models"
)

func TestTelegramEndpoints(t *testing.T) {
	expires := time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "POST /telegram/generate-code":
			writeJSON(w, http.StatusOK, models.TelegramVerification{VerificationCode: "AB12CD34", ExpiresAt: expires, BotUsername: "journal_bot"})
		case "GET /telegram/status":
			writeJSON(w, http.StatusOK, map[string]any{"connected": false, "username": nil, "connected_at": nil})
		case "POST /telegram/disconnect":
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "not found"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	c := New(ts.URL, newCreds("acc", ""))
	ctx := context.Background()

	code, err := c.GenerateTelegramCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AB12CD34", code.VerificationCode)
	assert.Equal(t, "journal_bot", code.BotUsername)
	assert.True(t, expires.Equal(code.ExpiresAt))

	status, err := c.TelegramStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Nil(t, status.Username)

	_, err = c.DisconnectTelegram(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
