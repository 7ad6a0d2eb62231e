// Package api exposes the REST surface around conversations: starting one,
// listing them and reading or searching their history.
// Live traffic goes through the websocket endpoint mounted on the same router.
package api

import (
	"log/slog"
	"net/http"

	"listing-chat/auth"
	"listing-chat/contract"
	"listing-chat/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodySize = 8 * 1024

// NewRouter wires the HTTP routes. The websocket handler authenticates
// in-band, so it is mounted outside the bearer protected group.
func NewRouter(log *slog.Logger, verifier contract.TokenVerifier, service services.IConversationService, ws http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)

	h := NewHandler(log, service)

	r.Get("/healthz", h.Health)
	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.RequestSize(maxBodySize))
		r.Use(auth.Middleware(verifier))

		r.Post("/conversations", h.StartConversation)
		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{id}/messages", h.GetMessages)
		r.Get("/conversations/{id}/messages/search", h.SearchMessages)
	})

	return r
}
