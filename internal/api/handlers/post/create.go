package post

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"Memories/internal/api/handlers"
	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
)

const (
	// maxFormOverhead covers title, content and multipart framing.
	maxFormOverhead = 1 << 20
	maxMemoryForm   = 8 << 20
)

// HandleCreate handles POST /api/posts
// Accepts multipart/form-data with title, content and an optional file.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, blobs.MaxBlobSize+maxFormOverhead)

	if err := r.ParseMultipartForm(maxMemoryForm); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"Request body too large (max 6MB attachment)")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid form body")
			return
		}
		if err := r.ParseForm(); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid form body")
			return
		}
	}

	draft := posts.Draft{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}

	file, err := readAttachment(r)
	if err != nil {
		switch {
		case errors.Is(err, blobs.ErrBlobTooLarge):
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "BlobTooLarge", err.Error())
		case errors.Is(err, blobs.ErrUnsupportedMimeType):
			handlers.WriteError(w, http.StatusUnsupportedMediaType, "UnsupportedMimeType", err.Error())
		default:
			slog.Warn("[POST-API] failed to read attachment", "error", err)
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid attachment")
		}
		return
	}

	err = h.controller.CreatePost(r.Context(), draft, file)
	h.writeSnapshot(w, err)
}

// readAttachment returns the uploaded file, or nil when none was sent or it
// is empty.
func readAttachment(r *http.Request) (*posts.AttachmentFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, blobs.MaxBlobSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if _, err := blobs.ValidateAttachment(data); err != nil {
		return nil, err
	}
	return &posts.AttachmentFile{Name: header.Filename, Data: data}, nil
}
