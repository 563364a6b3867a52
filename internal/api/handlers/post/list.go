package post

import "net/http"

// HandleList handles GET /api/posts
// Returns the local list without contacting the stores.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, nil)
}

// HandleRefresh handles POST /api/posts/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.controller.Refresh(r.Context())
	h.writeSnapshot(w, err)
}
