// Package notification exposes the create/delete success notices.
package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers"
)

// Notice kinds accepted by HandleDismiss.
const (
	KindCreate = "create"
	KindDelete = "delete"
)

// Notices is the subset of *posts.Controller the handlers use.
type Notices interface {
	CreateSucceeded() bool
	DeleteSucceeded() bool
	DismissCreateNotice()
	DismissDeleteNotice()
}

// Response is the notices payload.
type Response struct {
	CreateSucceeded bool `json:"createSucceeded"`
	DeleteSucceeded bool `json:"deleteSucceeded"`
}

// Handler handles /api/notifications requests
type Handler struct {
	notices Notices
}

// NewHandler creates a new notification handler
func NewHandler(notices Notices) *Handler {
	return &Handler{notices: notices}
}

// HandleGet handles GET /api/notifications
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, h.current())
}

// HandleDismiss handles DELETE /api/notifications/{kind}
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "kind") {
	case KindCreate:
		h.notices.DismissCreateNotice()
	case KindDelete:
		h.notices.DismissDeleteNotice()
	default:
		handlers.WriteError(w, http.StatusNotFound, "NotFound", "unknown notice kind")
		return
	}
	handlers.WriteJSON(w, http.StatusOK, h.current())
}

func (h *Handler) current() Response {
	return Response{
		CreateSucceeded: h.notices.CreateSucceeded(),
		DeleteSucceeded: h.notices.DeleteSucceeded(),
	}
}
