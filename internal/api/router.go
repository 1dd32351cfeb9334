package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/noteservice"
)

// NewRouter creates a chi router with all API routes, to be mounted at /api.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, files attachments.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(files)

	auth := AuthMiddleware(authEnabled, token)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth)

		// Notes.
		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)

		// Search.
		r.Get("/search", h.Search)

		// Blocks.
		r.Get("/blocks/note/{noteID}", h.ListBlocks)
		r.Post("/blocks/note/{noteID}", h.CreateBlock)
		r.Post("/blocks/upload", ah.Upload)
		r.Put("/blocks/{id}", h.UpdateBlock)
		r.Delete("/blocks/{id}", h.DeleteBlock)
	})

	// SSE endpoint. EventSource cannot set headers, so the token may also
	// come from the access_token query parameter.
	if sseHandler != nil {
		r.With(QueryTokenMiddleware, auth).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewAttachmentRouter serves stored attachments without auth so that image
// blocks can reference them directly. Mount it at /attachments.
func NewAttachmentRouter(files attachments.Provider) chi.Router {
	ah := NewAttachmentHandler(files)
	r := chi.NewRouter()
	r.Get("/{name}", ah.ServeFile)
	return r
}
