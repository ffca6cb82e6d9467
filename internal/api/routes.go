// Route registration and chi router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tabpilot/relay/internal/api/handlers"
	"github.com/tabpilot/relay/internal/infra/eventbus"
)

// NewRouter wires the relay's routes. bus may be nil to disable the
// request-outcome log.
func NewRouter(service handlers.ChatStreamService, bus eventbus.EventBus) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check — used by load balancers and probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// The relay entry point. OPTIONS is the CORS preflight, answered before
	// the pipeline; any other method on /chat gets chi's 405.
	chatHandler := handlers.NewChatHandler(service, bus)
	r.Post("/chat", chatHandler.Chat)
	r.Options("/chat", handlers.Preflight)

	return r
}
