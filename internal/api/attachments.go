package api

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/blocknote/internal/attachments"
)

// AttachmentHandler accepts image uploads and serves stored attachments.
type AttachmentHandler struct {
	store attachments.Provider
}

// NewAttachmentHandler creates a handler over store.
func NewAttachmentHandler(store attachments.Provider) *AttachmentHandler {
	return &AttachmentHandler{store: store}
}

// ServeFile handles GET /attachments/{name}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rc, obj, err := h.store.Open(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, "serve attachment", err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(obj.Name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// Upload handles POST /api/blocks/upload (multipart/form-data, field "image").
//
//	@Summary		Upload an image for an image block
//	@Tags			blocks
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Image file"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/upload [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(attachments.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'image' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, attachments.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	saved, err := attachments.SaveImage(r.Context(), h.store, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		URL:      saved.URL,
		Filename: saved.Name,
		Original: saved.Original,
		Size:     saved.Size,
	})
}
