package routes

import (
	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers/notification"
)

// RegisterNotificationRoutes registers the success notice endpoints.
func RegisterNotificationRoutes(r chi.Router, notices notification.Notices) {
	h := notification.NewHandler(notices)

	r.Get("/api/notifications", h.HandleGet)
	r.Delete("/api/notifications/{kind}", h.HandleDismiss)
}
