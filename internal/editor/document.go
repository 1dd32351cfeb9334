// Package editor holds the in-memory model of the open note: its ordered
// blocks, slash menu, focus requests and drag state, plus the Session that
// ties them to the save controller.
package editor

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/slash"
	"github.com/starford/blocknote/internal/storage"
)

// Patch is a partial block edit. Nil fields are left untouched.
type Patch struct {
	Content *string
	Meta    models.Metadata
}

// SetContent returns a Patch replacing the content.
func SetContent(s string) Patch { return Patch{Content: &s} }

// SetMeta returns a Patch replacing the metadata.
func SetMeta(m models.Metadata) Patch { return Patch{Meta: m} }

// MenuState describes the slash menu for rendering.
type MenuState struct {
	Open   bool            `json:"open"`
	Index  int             `json:"index"`
	Filter string          `json:"filter"`
	Items  []slash.Command `json:"items"`
	Cursor int             `json:"cursor"`
}

// Document owns the ordered block list of one note. A note always has at
// least one block and block ids are unique within it.
type Document struct {
	store  storage.Provider
	logger *slog.Logger
	focus  *FocusRouter

	mu     sync.Mutex
	note   models.Note
	blocks []models.Block
	menu   *slash.Menu
	menuAt int // index the menu is open for, -1 when closed
}

// NewDocument creates an empty document. Call Initialize before use.
func NewDocument(store storage.Provider, focus *FocusRouter, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	if focus == nil {
		focus = NewFocusRouter()
	}
	return &Document{store: store, focus: focus, logger: logger, menuAt: -1}
}

// Initialize loads note's blocks. A new note, a failed load or an empty
// result all leave the document with one empty text block.
func (d *Document) Initialize(ctx context.Context, note models.Note) {
	var loaded []models.Block
	if note.Persisted() {
		blocks, err := d.store.ListBlocks(ctx, note.ID)
		if err != nil {
			d.logger.Warn("editor: load blocks failed",
				slog.String("note_id", note.ID),
				slog.String("error", err.Error()))
		} else {
			loaded = blocks
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.note = note
	d.menu = nil
	d.menuAt = -1
	if len(loaded) == 0 {
		seed := models.NewBlock(models.NewProvisionalID(), models.BlockText)
		seed.NoteID = note.ID
		loaded = []models.Block{seed}
	}
	d.blocks = loaded
	d.renumberLocked()
}

// Note returns the note header (id, title, timestamps).
func (d *Document) Note() models.Note {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.note
}

// Title returns the current title.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.note.Title
}

// SetTitle replaces the title.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.note.Title = title
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blocks)
}

// Blocks returns a copy of the block sequence.
func (d *Document) Blocks() []models.Block {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Block(nil), d.blocks...)
}

// Block returns the block at index.
func (d *Document) Block(index int) (models.Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.blocks) {
		return models.Block{}, false
	}
	return d.blocks[index], true
}

// IndexOf returns the index of the block with id, or -1.
func (d *Document) IndexOf(id models.BlockID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexLocked(id)
}

// BlockByID returns the block with id.
func (d *Document) BlockByID(id models.BlockID) (models.Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(id); i >= 0 {
		return d.blocks[i], true
	}
	return models.Block{}, false
}

// Contains reports whether a block with id is in the sequence.
func (d *Document) Contains(id models.BlockID) bool {
	return d.IndexOf(id) >= 0
}

// Snapshot returns the note and a copy of the blocks for saving.
func (d *Document) Snapshot() (models.Note, []models.Block) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.note, append([]models.Block(nil), d.blocks...)
}

// AdoptNote takes the stored id and timestamps of a newly created note.
// The local title wins since it may have been edited during the save.
func (d *Document) AdoptNote(n models.Note) {
	d.mu.Lock()
	defer d.mu.Unlock()
	title := d.note.Title
	d.note = n
	d.note.Title = title
	for i := range d.blocks {
		d.blocks[i].NoteID = n.ID
	}
}

// UpdateContent applies p to the block at index. Out-of-range indexes and
// metadata that does not match the block type or fails validation are
// ignored. Content edits also open, filter or close the slash menu.
func (d *Document) UpdateContent(index int, p Patch) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.blocks) {
		return false
	}
	b := &d.blocks[index]
	changed := false

	if p.Meta != nil {
		switch {
		case p.Meta.BlockType() != b.Type:
			d.logger.Debug("editor: metadata ignored, type mismatch",
				slog.String("block_type", string(b.Type)),
				slog.String("meta_type", string(p.Meta.BlockType())))
		case p.Meta.Validate() != nil:
			d.logger.Debug("editor: metadata ignored, invalid", slog.String("block_type", string(b.Type)))
		default:
			b.Meta = models.Normalize(p.Meta)
			changed = true
		}
	}

	if p.Content != nil {
		b.Content = *p.Content
		changed = true
		if filter, ok := strings.CutPrefix(b.Content, "/"); ok {
			if d.menuAt != index || d.menu == nil {
				d.menu = slash.NewMenu(slash.Registry)
				d.menuAt = index
			}
			d.menu.SetFilter(filter)
		} else if d.menuAt == index {
			d.closeMenuLocked()
		}
	}
	return changed
}

// InsertAfter inserts an empty block of type t after index (-1 inserts at
// the front) and returns its index. Slash text in the block at index is
// cleared first. Focus moves to the new block.
func (d *Document) InsertAfter(index int, t models.BlockType) (int, bool) {
	if !t.Valid() {
		return -1, false
	}
	d.mu.Lock()
	if index < -1 || index >= len(d.blocks) {
		d.mu.Unlock()
		return -1, false
	}
	if index >= 0 && strings.HasPrefix(d.blocks[index].Content, "/") {
		d.blocks[index].Content = ""
	}
	nb := models.NewBlock(models.NewProvisionalID(), t)
	nb.NoteID = d.note.ID
	at := index + 1
	d.blocks = append(d.blocks, models.Block{})
	copy(d.blocks[at+1:], d.blocks[at:])
	d.blocks[at] = nb
	d.renumberLocked()
	d.closeMenuLocked()
	d.mu.Unlock()

	d.focus.Request(at)
	return at, true
}

// ReplaceType changes the block at index to t in place. The id is kept,
// content is cleared and metadata reset to t's default.
func (d *Document) ReplaceType(index int, t models.BlockType) bool {
	if !t.Valid() {
		return false
	}
	d.mu.Lock()
	if index < 0 || index >= len(d.blocks) {
		d.mu.Unlock()
		return false
	}
	b := &d.blocks[index]
	b.Type = t
	b.Content = ""
	b.Meta = models.DefaultMetadata(t)
	d.closeMenuLocked()
	d.mu.Unlock()

	d.focus.Request(index)
	return true
}

// Delete removes the block at index unless it is the only one. A stored
// block is also deleted from storage; a storage failure is logged and the
// local removal stands. Focus moves to max(0, index-1).
func (d *Document) Delete(ctx context.Context, index int) (models.Block, bool) {
	d.mu.Lock()
	if len(d.blocks) <= 1 || index < 0 || index >= len(d.blocks) {
		d.mu.Unlock()
		return models.Block{}, false
	}
	removed := d.blocks[index]
	d.blocks = append(d.blocks[:index], d.blocks[index+1:]...)
	d.renumberLocked()
	switch {
	case d.menuAt == index:
		d.closeMenuLocked()
	case d.menuAt > index:
		d.menuAt--
	}
	d.mu.Unlock()

	d.focus.Request(max(0, index-1))

	if !removed.ID.IsProvisional() {
		if err := d.store.DeleteBlock(ctx, removed.ID.Value()); err != nil {
			d.logger.Warn("editor: delete block failed",
				slog.String("block_id", removed.ID.Value()),
				slog.String("error", err.Error()))
		}
	}
	return removed, true
}

// Reorder moves the block with src to the index currently held by tgt,
// shifting the blocks in between by one.
func (d *Document) Reorder(src, tgt models.BlockID) bool {
	if src == tgt {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	from, to := d.indexLocked(src), d.indexLocked(tgt)
	if from < 0 || to < 0 {
		return false
	}
	moved := d.blocks[from]
	if from < to {
		copy(d.blocks[from:to], d.blocks[from+1:to+1])
	} else {
		copy(d.blocks[to+1:from+1], d.blocks[to:from])
	}
	d.blocks[to] = moved
	d.renumberLocked()
	d.closeMenuLocked()
	return true
}

// Promote gives the provisional block the stored block's identity without
// moving it. Local type, content and metadata are kept so edits made while
// the save was in flight survive.
func (d *Document) Promote(provisional models.BlockID, stored models.Block) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(provisional)
	if i < 0 || !provisional.IsProvisional() {
		return false
	}
	d.blocks[i].ID = stored.ID
	d.blocks[i].NoteID = stored.NoteID
	return true
}

// OpenMenu opens the slash menu for index with an empty filter.
func (d *Document) OpenMenu(index int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.blocks) {
		return false
	}
	d.menu = slash.NewMenu(slash.Registry)
	d.menuAt = index
	return true
}

// CloseMenu closes the slash menu without selecting anything.
func (d *Document) CloseMenu() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeMenuLocked()
}

// Menu returns the slash menu state.
func (d *Document) Menu() MenuState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.menu == nil {
		return MenuState{Index: -1}
	}
	return MenuState{
		Open:   true,
		Index:  d.menuAt,
		Filter: d.menu.Filter(),
		Items:  d.menu.Items(),
		Cursor: d.menu.Cursor(),
	}
}

// MenuNext moves the menu cursor down, wrapping.
func (d *Document) MenuNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.menu != nil {
		d.menu.Next()
	}
}

// MenuPrev moves the menu cursor up, wrapping.
func (d *Document) MenuPrev() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.menu != nil {
		d.menu.Prev()
	}
}

// ConfirmMenu replaces the block the menu is open for with the selected
// type. It is a no-op when the menu is closed or has no matches.
func (d *Document) ConfirmMenu() (int, models.BlockType, bool) {
	d.mu.Lock()
	if d.menu == nil {
		d.mu.Unlock()
		return -1, "", false
	}
	t, ok := d.menu.Confirm()
	index := d.menuAt
	d.mu.Unlock()
	if !ok {
		return -1, "", false
	}
	return index, t, d.ReplaceType(index, t)
}

// Focus returns the document's focus router.
func (d *Document) Focus() *FocusRouter { return d.focus }

func (d *Document) closeMenuLocked() {
	d.menu = nil
	d.menuAt = -1
}

func (d *Document) indexLocked(id models.BlockID) int {
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) renumberLocked() {
	for i := range d.blocks {
		d.blocks[i].Position = i
	}
}
