package post

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers"
)

// HandleLike handles POST /api/posts/{index}/like
// index is the position in the list the client is showing.
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "index must be an integer")
		return
	}

	err = h.controller.IncrementLike(r.Context(), index)
	h.writeSnapshot(w, err)
}
