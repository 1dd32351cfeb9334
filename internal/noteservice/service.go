// Package noteservice coordinates note and block storage with change
// notifications for connected clients.
package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
)

// Store is the storage the service runs on.
type Store interface {
	storage.Provider
	storage.Catalog
}

// Events receives note-list changes. The SSE broker implements it.
type Events interface {
	PublishNoteEvent(kind, noteID string)
}

// NoteListResponse wraps a page of notes.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// Service coordinates storage and change events.
type Service struct {
	store  Store
	events Events
	logger *slog.Logger
}

// NewService creates a new note service. events may be nil.
func NewService(store Store, events Events, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: events, logger: logger}
}

// ListNotes returns a page of notes, most recently updated first.
func (s *Service) ListNotes(ctx context.Context, limit, offset int) (NoteListResponse, error) {
	notes, total, err := s.store.ListNotes(ctx, limit, offset)
	if err != nil {
		return NoteListResponse{}, err
	}
	return NoteListResponse{Notes: nonNilSlice(notes), Total: total}, nil
}

// GetNote returns one note.
func (s *Service) GetNote(ctx context.Context, id string) (models.Note, error) {
	return s.store.GetNote(ctx, id)
}

// Search delegates full-text search to storage.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error) {
	res, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// CreateNote stores a new note and announces it.
func (s *Service) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	n, err := s.store.CreateNote(ctx, title, content)
	if err != nil {
		return models.Note{}, err
	}
	s.publish("created", n.ID)
	return n, nil
}

// UpdateNote replaces title and content.
func (s *Service) UpdateNote(ctx context.Context, id, title, content string) (models.Note, error) {
	return s.UpdateNoteIfMatch(ctx, id, title, content, "")
}

// UpdateNoteIfMatch is UpdateNote with optimistic concurrency: a non-empty
// ifMatch must equal the stored checksum or apperr.ErrConflict is returned.
func (s *Service) UpdateNoteIfMatch(ctx context.Context, id, title, content, ifMatch string) (models.Note, error) {
	if ifMatch != "" {
		existing, err := s.store.GetNote(ctx, id)
		if err != nil {
			return models.Note{}, err
		}
		if existing.Checksum != ifMatch {
			return models.Note{}, apperr.ErrConflict
		}
	}
	n, err := s.store.UpdateNote(ctx, id, title, content)
	if err != nil {
		return models.Note{}, err
	}
	s.publish("updated", n.ID)
	return n, nil
}

// DeleteNote removes a note and its blocks.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.publish("deleted", id)
	return nil
}

// ListBlocks returns the note's blocks in order.
func (s *Service) ListBlocks(ctx context.Context, noteID string) ([]models.Block, error) {
	return s.store.ListBlocks(ctx, noteID)
}

// CreateBlock stores a block under noteID.
func (s *Service) CreateBlock(ctx context.Context, noteID string, in storage.BlockInput) (models.Block, error) {
	return s.store.CreateBlock(ctx, noteID, in)
}

// UpdateBlock replaces a block's fields.
func (s *Service) UpdateBlock(ctx context.Context, id string, in storage.BlockInput) (models.Block, error) {
	return s.store.UpdateBlock(ctx, id, in)
}

// DeleteBlock removes one block.
func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	return s.store.DeleteBlock(ctx, id)
}

// ImageSources lists the URLs referenced by image blocks.
func (s *Service) ImageSources(ctx context.Context) ([]string, error) {
	return s.store.ImageSources(ctx)
}

func (s *Service) publish(kind, id string) {
	if s.events == nil {
		return
	}
	s.events.PublishNoteEvent(kind, id)
	s.logger.Debug("note event", slog.String("kind", kind), slog.String("note_id", id))
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ storage.Provider = (*Service)(nil)
