package routes

import (
	"github.com/go-chi/chi/v5"

	blobhandlers "Memories/internal/api/handlers/blob"
)

// RegisterBlobRoutes registers the signed attachment endpoint.
//
// Route: GET /blobs/{token}
//
// The token is a short-lived JWT naming the blob key. Only blob stores that
// keep bytes locally (memory, postgres) mint these URLs.
// The endpoint supports ETag-based caching with If-None-Match headers.
func RegisterBlobRoutes(r chi.Router, handler *blobhandlers.Handler) {
	r.Get("/blobs/{token}", handler.HandleGet)
}
