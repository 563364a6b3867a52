package routes

import (
	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers/events"
)

// RegisterEventRoutes registers the websocket change stream.
func RegisterEventRoutes(r chi.Router, handler *events.Handler) {
	r.Get("/api/events", handler.HandleStream)
}
