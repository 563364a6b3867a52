package routes

import (
	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers/post"
)

// RegisterPostRoutes registers the post list and synchronization endpoints.
// Every endpoint answers with the current snapshot; the X-Sync-Outcome
// header tells whether the operation ran, was skipped or failed remotely.
func RegisterPostRoutes(r chi.Router, controller post.Controller) {
	h := post.NewHandler(controller)

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/refresh", h.HandleRefresh)
		r.Post("/{index}/like", h.HandleLike)
		r.Delete("/{id}", h.HandleDelete)
	})
}
