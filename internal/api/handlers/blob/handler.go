// Package blob serves attachment bytes behind signed, expiring URLs.
package blob

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Memories/internal/api/handlers"
	"Memories/internal/core/blobs"
)

// TokenVerifier checks a signed URL token and returns the blob key.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Handler handles GET /blobs/{token}
type Handler struct {
	reader   blobs.Reader
	verifier TokenVerifier
}

// NewHandler creates a new blob handler
func NewHandler(reader blobs.Reader, verifier TokenVerifier) *Handler {
	return &Handler{reader: reader, verifier: verifier}
}

// HandleGet serves the blob named by the token
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil || token == "" {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "missing blob token")
		return
	}

	key, err := h.verifier.Verify(token)
	if err != nil {
		handlers.WriteError(w, http.StatusForbidden, "InvalidToken", "blob URL is invalid or expired")
		return
	}

	obj, err := h.reader.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blobs.ErrBlobNotFound) {
			handlers.WriteError(w, http.StatusNotFound, "BlobNotFound", "blob not found")
			return
		}
		slog.Error("[BLOB-API] failed to load blob", "key", key, "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError", "failed to load blob")
		return
	}

	// Content-addressed, so the CID is a strong validator
	etag := fmt.Sprintf(`"%s"`, obj.CID)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", obj.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		slog.Warn("[BLOB-API] failed to write blob response", "key", key, "error", err)
	}
}
