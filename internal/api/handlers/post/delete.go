package post

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandleDelete handles DELETE /api/posts/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.controller.DeletePost(r.Context(), chi.URLParam(r, "id"))
	h.writeSnapshot(w, err)
}
