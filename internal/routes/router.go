package routes

import (
	"net/http"

	"storefront-agent/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP surface. db may be nil, in which case health skips the database check.
func NewRouter(serviceName string, db Pinger, a Conversations) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.OTelHTTP(serviceName, "/api/health"))
	r.Use(middleware.RequestLogger("/api/health"))

	r.Get("/api/health", HealthHandler(serviceName, db))
	r.Route("/api/agent", func(r chi.Router) {
		r.Post("/ask", AskHandler(a))
		r.Get("/conversations/{id}", ConversationHandler(a))
		r.Delete("/conversations/{id}", ResetConversationHandler(a))
	})
	return r
}
