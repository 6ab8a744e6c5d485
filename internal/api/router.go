package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"finassist/internal/api/handlers"
	"finassist/internal/api/middleware"
	"finassist/internal/auth"
)

// NewRouter assembles the HTTP surface. Chat routes sit behind bearer
// auth and a per-client rate limit; health does not.
func NewRouter(chat *handlers.ChatHandler, health *handlers.HealthHandler, verifier *auth.Verifier, chatRateLimit int, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Get("/health", health.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(chatRateLimit))
		r.Use(middleware.Auth(verifier))

		r.Post("/chat", chat.Chat)
		r.Get("/chat/history/{sessionID}", chat.History)
		r.Delete("/chat/history/{sessionID}", chat.ClearHistory)
	})

	return r
}
