// Package post serves the local post list and the four synchronization
// operations over HTTP.
package post

import (
	"context"
	"net/http"

	"Memories/internal/api/handlers"
	"Memories/internal/core/posts"
)

// OutcomeHeader reports how the requested operation went. The body is
// always the current snapshot.
const OutcomeHeader = "X-Sync-Outcome"

// Outcome values.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Controller is the subset of *posts.Controller the handlers use.
type Controller interface {
	Snapshot() posts.Snapshot
	Refresh(ctx context.Context) error
	CreatePost(ctx context.Context, draft posts.Draft, file *posts.AttachmentFile) error
	DeletePost(ctx context.Context, id string) error
	IncrementLike(ctx context.Context, index int) error
}

var _ Controller = (*posts.Controller)(nil)

// Handler handles /api/posts requests
type Handler struct {
	controller Controller
}

// NewHandler creates a new post handler
func NewHandler(controller Controller) *Handler {
	return &Handler{controller: controller}
}

// outcomeOf classifies an operation result.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case posts.IsSkipped(err):
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

// writeSnapshot answers 200 with the snapshot and the operation outcome.
// Remote failures are already logged by the controller and never become
// error responses.
func (h *Handler) writeSnapshot(w http.ResponseWriter, err error) {
	w.Header().Set(OutcomeHeader, outcomeOf(err))
	handlers.WriteJSON(w, http.StatusOK, h.controller.Snapshot())
}
