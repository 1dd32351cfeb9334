package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/blocknote/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recently updated first
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	noteservice.NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	res, err := h.svc.ListNotes(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note with optional optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Note id"
//	@Param			If-Match	header		string		false	"Checksum the note must still have"
//	@Param			body		body		NoteRequest	true	"Title and derived content"
//	@Success		200			{object}	models.Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNoteIfMatch(r.Context(), chi.URLParam(r, "id"), req.Title, req.Content, ifMatch)
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. Blocks are removed with the note.
//
//	@Summary		Delete a note and its blocks
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListBlocks handles GET /api/blocks/note/{noteID}.
//
//	@Summary		List a note's blocks in order
//	@Tags			blocks
//	@Produce		json
//	@Param			noteID	path	string	true	"Note id"
//	@Success		200		{array}	models.Block
//	@Security		BearerAuth
//	@Router			/blocks/note/{noteID} [get]
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.svc.ListBlocks(r.Context(), chi.URLParam(r, "noteID"))
	if err != nil {
		writeError(w, r, "list blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// CreateBlock handles POST /api/blocks/note/{noteID}.
//
//	@Summary		Create a block under a note
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			noteID	path		string			true	"Note id"
//	@Param			body	body		BlockRequest	true	"Block fields"
//	@Success		201		{object}	models.Block
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/note/{noteID} [post]
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, "create block", err)
		return
	}
	block, err := h.svc.CreateBlock(r.Context(), chi.URLParam(r, "noteID"), in)
	if err != nil {
		writeError(w, r, "create block", err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// UpdateBlock handles PUT /api/blocks/{id}.
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, "update block", err)
		return
	}
	block, err := h.svc.UpdateBlock(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, "update block", err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// DeleteBlock handles DELETE /api/blocks/{id}.
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
