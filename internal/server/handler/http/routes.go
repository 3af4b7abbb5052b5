package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the trade journal API.
//
// Routes:
//
//	POST   /auth/register           → authHandler.Register
//	POST   /auth/login              → authHandler.Login
//	POST   /auth/refresh            → authHandler.Refresh (bearer refresh token)
//	GET    /auth/me                 → authHandler.Me
//	POST   /auth/logout             → authHandler.Logout
//	GET    /trades/                 → tradeHandler.List
//	POST   /trades/                 → tradeHandler.Create
//	DELETE /trades/delete-multiple  → tradeHandler.DeleteMany
//	GET    /trades/{id}             → tradeHandler.Get
//	PUT    /trades/{id}             → tradeHandler.Update
//	DELETE /trades/{id}             → tradeHandler.Delete
//	GET    /tickers/                → catalogHandler.Tickers
//	GET    /tags/                   → catalogHandler.Tags
//	POST   /telegram/generate-code  → telegramHandler.GenerateCode
//	GET    /telegram/status         → telegramHandler.Status
//	POST   /telegram/disconnect     → telegramHandler.Disconnect
//
// Everything except register, login and refresh requires a valid access token.
func NewRouter(
	authHandler *AuthHandler,
	tradeHandler *TradeHandler,
	catalogHandler *CatalogHandler,
	telegramHandler *TelegramHandler,
	authn middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	// Only allow request bodies with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	requireAuth := middleware.BearerAuth(authn)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		r.With(requireAuth).Get("/me", authHandler.Me)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", tradeHandler.List)
			r.Post("/", tradeHandler.Create)
			r.Delete("/delete-multiple", tradeHandler.DeleteMany)
			r.Get("/{id}", tradeHandler.Get)
			r.Put("/{id}", tradeHandler.Update)
			r.Delete("/{id}", tradeHandler.Delete)
		})
		r.Get("/tickers/", catalogHandler.Tickers)
		r.Get("/tags/", catalogHandler.Tags)

		r.Route("/telegram", func(r chi.Router) {
			r.Post("/generate-code", telegramHandler.GenerateCode)
			r.Get("/status", telegramHandler.Status)
			r.Post("/disconnect", telegramHandler.Disconnect)
		})
	})

	return r
}
