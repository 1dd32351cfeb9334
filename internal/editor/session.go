package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
	"github.com/starford/blocknote/internal/syncer"
)

var (
	// ErrNoNote is returned by Session operations when no note is open.
	ErrNoNote = errors.New("editor: no note open")
	// ErrNotConfirmed is returned when a destructive action is declined.
	ErrNotConfirmed = errors.New("editor: action not confirmed")
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// SessionConfig configures a Session.
type SessionConfig struct {
	Sync      syncer.Config
	Confirmer Confirmer
	Logger    *slog.Logger
}

// Session is the editor for one open note at a time. Every mutation goes
// through the Document and marks the save controller dirty.
type Session struct {
	store  storage.Provider
	cfg    SessionConfig
	logger *slog.Logger

	mu   sync.Mutex
	doc  *Document
	ctrl *syncer.Controller
	drag *DragCoordinator
}

// NewSession creates a Session with no note open.
func NewSession(store storage.Provider, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sync.Logger == nil {
		cfg.Sync.Logger = cfg.Logger
	}
	s := &Session{store: store, cfg: cfg, logger: cfg.Logger}
	s.drag = NewDragCoordinator(s)
	return s
}

// Open switches to note. The previous note's pending save timer is
// cancelled; a save already in flight finishes against the old document.
func (s *Session) Open(ctx context.Context, note models.Note) *Document {
	doc := NewDocument(s.store, NewFocusRouter(), s.logger)
	doc.Initialize(ctx, note)
	ctrl := syncer.New(doc, s.store, s.cfg.Sync)

	s.mu.Lock()
	prev := s.ctrl
	s.doc, s.ctrl = doc, ctrl
	s.mu.Unlock()

	s.drag.Cancel()
	if prev != nil {
		prev.Close()
	}
	s.logger.Debug("editor: note opened", slog.String("note_id", note.ID))
	return doc
}

// OpenByID loads the stored note with id through catalog and opens it.
func (s *Session) OpenByID(ctx context.Context, catalog storage.Catalog, id string) (*Document, error) {
	note, err := catalog.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, note), nil
}

// Close cancels the pending save and closes the current note.
func (s *Session) Close() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.doc, s.ctrl = nil, nil
	s.mu.Unlock()
	s.drag.Cancel()
	if ctrl != nil {
		ctrl.Close()
	}
}

// Document returns the open document, or nil.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Controller returns the open note's save controller, or nil.
func (s *Session) Controller() *syncer.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Drag returns the drag coordinator bound to the session.
func (s *Session) Drag() *DragCoordinator { return s.drag }

func (s *Session) current() (*Document, *syncer.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, nil, ErrNoNote
	}
	return s.doc, s.ctrl, nil
}

// SetTitle replaces the note title.
func (s *Session) SetTitle(title string) error {
	doc, ctrl, err := s.current()
	if err != nil {
		return err
	}
	doc.SetTitle(title)
	ctrl.MarkDirty()
	return nil
}

// UpdateContent applies p to the block at index.
func (s *Session) UpdateContent(index int, p Patch) (bool, error) {
	doc, ctrl, err := s.current()
	if err != nil {
		return false, err
	}
	if !doc.UpdateContent(index, p) {
		return false, nil
	}
	ctrl.MarkDirty()
	return true, nil
}

// InsertAfter adds an empty block of type t after index.
func (s *Session) InsertAfter(index int, t models.BlockType) (int, error) {
	doc, ctrl, err := s.current()
	if err != nil {
		return -1, err
	}
	at, ok := doc.InsertAfter(index, t)
	if !ok {
		return -1, fmt.Errorf("%w: cannot insert %q after %d", apperr.ErrInvalid, t, index)
	}
	ctrl.MarkDirty()
	return at, nil
}

// ReplaceType switches the block at index to t, clearing it.
func (s *Session) ReplaceType(index int, t models.BlockType) error {
	doc, ctrl, err := s.current()
	if err != nil {
		return err
	}
	if !doc.ReplaceType(index, t) {
		return fmt.Errorf("%w: cannot change block %d to %q", apperr.ErrInvalid, index, t)
	}
	ctrl.MarkDirty()
	return nil
}

// Delete removes the block at index. Deleting the only block is a no-op.
func (s *Session) Delete(ctx context.Context, index int) (bool, error) {
	doc, ctrl, err := s.current()
	if err != nil {
		return false, err
	}
	if _, ok := doc.Delete(ctx, index); !ok {
		return false, nil
	}
	ctrl.MarkDirty()
	return true, nil
}

// BlockByID looks up a block in the open note.
func (s *Session) BlockByID(id models.BlockID) (models.Block, bool) {
	doc, _, err := s.current()
	if err != nil {
		return models.Block{}, false
	}
	return doc.BlockByID(id)
}

// Reorder moves src to tgt's position.
func (s *Session) Reorder(src, tgt models.BlockID) bool {
	doc, ctrl, err := s.current()
	if err != nil {
		return false
	}
	if !doc.Reorder(src, tgt) {
		return false
	}
	ctrl.MarkDirty()
	return true
}

// Enter on a text block inserts a new text block after it. It does nothing
// on other block types or while the slash menu is open for the block.
func (s *Session) Enter(index int) (int, bool, error) {
	doc, _, err := s.current()
	if err != nil {
		return -1, false, err
	}
	b, ok := doc.Block(index)
	if !ok || b.Type != models.BlockText {
		return -1, false, nil
	}
	if m := doc.Menu(); m.Open && m.Index == index {
		return -1, false, nil
	}
	at, err := s.InsertAfter(index, models.BlockText)
	if err != nil {
		return -1, false, err
	}
	return at, true, nil
}

// Backspace on an empty block deletes it when it is not the last one and
// the slash menu is not open for it.
func (s *Session) Backspace(ctx context.Context, index int) (bool, error) {
	doc, _, err := s.current()
	if err != nil {
		return false, err
	}
	b, ok := doc.Block(index)
	if !ok || b.Content != "" || doc.Len() <= 1 {
		return false, nil
	}
	if m := doc.Menu(); m.Open && m.Index == index {
		return false, nil
	}
	return s.Delete(ctx, index)
}

// ConfirmMenu applies the slash menu selection.
func (s *Session) ConfirmMenu() (int, models.BlockType, bool, error) {
	doc, ctrl, err := s.current()
	if err != nil {
		return -1, "", false, err
	}
	index, t, ok := doc.ConfirmMenu()
	if ok {
		ctrl.MarkDirty()
	}
	return index, t, ok, nil
}

// SetLink normalizes raw and stores it in the link block at index, with
// the host as title.
func (s *Session) SetLink(index int, raw string) error {
	doc, _, err := s.current()
	if err != nil {
		return err
	}
	if b, ok := doc.Block(index); !ok || b.Type != models.BlockLink {
		return fmt.Errorf("%w: block %d is not a link", apperr.ErrInvalid, index)
	}
	u, host, err := NormalizeLink(raw)
	if err != nil {
		return err
	}
	_, err = s.UpdateContent(index, Patch{Content: &u, Meta: models.LinkMeta{Title: host}})
	return err
}

// SetImage points the image block at index to url with alt text.
func (s *Session) SetImage(index int, url, alt string) error {
	doc, _, err := s.current()
	if err != nil {
		return err
	}
	if b, ok := doc.Block(index); !ok || b.Type != models.BlockImage {
		return fmt.Errorf("%w: block %d is not an image", apperr.ErrInvalid, index)
	}
	_, err = s.UpdateContent(index, Patch{Content: &url, Meta: models.ImageMeta{Alt: alt}})
	return err
}

// Save persists the open note immediately.
func (s *Session) Save(ctx context.Context) error {
	_, ctrl, err := s.current()
	if err != nil {
		return err
	}
	return ctrl.ForceSave(ctx)
}

// DeleteNote asks the Confirmer, then deletes the open note and its
// blocks and closes it. Without a Confirmer nothing is deleted.
func (s *Session) DeleteNote(ctx context.Context) error {
	doc, ctrl, err := s.current()
	if err != nil {
		return err
	}
	if s.cfg.Confirmer == nil {
		return ErrNotConfirmed
	}
	title := doc.Note().Title
	if title == "" {
		title = "Untitled"
	}
	ok, err := s.cfg.Confirmer.Confirm(ctx, fmt.Sprintf("Delete %q? This cannot be undone.", title))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}

	// A first save may be creating the note right now; wait for it so the
	// delete targets the stored id.
	release := ctrl.Hold()
	note := doc.Note()
	if note.Persisted() {
		if err := s.store.DeleteNote(ctx, note.ID); err != nil {
			release()
			s.logger.Warn("editor: delete note failed",
				slog.String("note_id", note.ID),
				slog.String("error", err.Error()))
			return err
		}
		if n := s.cfg.Sync.Notifier; n != nil {
			n.NoteListChanged(syncer.NoteDeleted, note)
		}
	}

	s.mu.Lock()
	if s.doc == doc {
		s.doc, s.ctrl = nil, nil
	}
	s.mu.Unlock()
	s.drag.Cancel()
	ctrl.Close()
	release()
	return nil
}
