// Package syncer debounces edits to the open note and persists them through
// a storage.Provider, reconciling provisional block ids with stored ones.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
)

var (
	// ErrClosed is returned by ForceSave after Close.
	ErrClosed = errors.New("syncer: controller closed")
	// ErrEmptyTitle is returned by ForceSave when the title is blank; nothing is written.
	ErrEmptyTitle = errors.New("syncer: title is empty, save skipped")
)

// Note-list change kinds passed to a Notifier.
const (
	NoteCreated = "created"
	NoteUpdated = "updated"
	NoteDeleted = "deleted"
)

// Source is the in-memory document the controller persists.
type Source interface {
	// Snapshot returns the note and a copy of its blocks in sequence order.
	Snapshot() (models.Note, []models.Block)
	// AdoptNote takes the stored identity of a newly created note.
	AdoptNote(n models.Note)
	// Contains reports whether a block with id is still in the sequence.
	Contains(id models.BlockID) bool
	// Promote swaps a provisional id for the stored block's identity in place.
	Promote(provisional models.BlockID, stored models.Block) bool
}

// Notifier receives note-list-changed signals after note writes.
type Notifier interface {
	NoteListChanged(kind string, n models.Note)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind string, n models.Note)

func (f NotifierFunc) NoteListChanged(kind string, n models.Note) { f(kind, n) }

// Config tunes a Controller. Zero durations take the defaults.
type Config struct {
	Debounce    time.Duration // quiet period before a save; default 2s
	ErrorRevert time.Duration // error → unsaved delay; default 3s
	SaveTimeout time.Duration // per-save deadline; default 30s
	Clock       Clock
	Logger      *slog.Logger
	Notifier    Notifier
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 2 * time.Second
	}
	if c.ErrorRevert <= 0 {
		c.ErrorRevert = 3 * time.Second
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 30 * time.Second
	}
	if c.Clock == nil {
		c.Clock = RealClock
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Controller owns the debounce timer and save status for one open note.
// At most one save runs at a time; edits made during a save are picked up
// by the next debounce cycle.
type Controller struct {
	src   Source
	store storage.Provider
	cfg   Config

	persistMu sync.Mutex // held for the duration of one save

	mu       sync.Mutex
	state    State
	debounce Timer
	armSeq   uint64 // invalidates a debounce callback that raced with Stop
	revert   Timer
	dirtyGen uint64
	rerun    bool
	closed   bool
	subs     []chan State
}

// New creates a Controller for src. It starts idle with no timer armed.
func New(src Source, store storage.Provider, cfg Config) *Controller {
	return &Controller{src: src, store: store, cfg: cfg.withDefaults()}
}

// State returns the current save state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel of state transitions. Slow readers miss
// intermediate states; the channel is closed by Close.
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State, 8)
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// MarkDirty records a local edit and restarts the debounce timer.
func (c *Controller) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.dirtyGen++
	c.stopRevertLocked()
	if c.state.Status != StatusSaving {
		c.setStateLocked(State{Status: StatusUnsaved, LastSavedAt: c.state.LastSavedAt})
	}
	c.armLocked()
}

// Pending reports whether a debounce timer is armed.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debounce != nil
}

// Dirty reports whether local edits have not reached storage yet: a save is
// armed, running, failed, or was skipped.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil || c.rerun {
		return true
	}
	switch c.state.Status {
	case StatusUnsaved, StatusSaving, StatusError:
		return true
	}
	return false
}

// ForceSave bypasses the debounce and saves now, waiting for an in-flight
// save to finish first.
func (c *Controller) ForceSave(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.persistMu.Lock()
	defer c.unlockPersist()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SaveTimeout)
	defer cancel()
	return c.persist(ctx)
}

// Cancel drops the pending debounce timer without saving.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopDebounceLocked()
}

// Hold waits for an in-flight save and keeps new saves from starting until
// the returned release func is called. A debounce armed at the time is
// re-armed on release unless the controller was closed in between.
func (c *Controller) Hold() (release func()) {
	c.persistMu.Lock()
	c.mu.Lock()
	if c.debounce != nil {
		c.stopDebounceLocked()
		c.rerun = true
	}
	c.mu.Unlock()
	return c.unlockPersist
}

// Close cancels pending timers and releases subscribers. A save already in
// flight runs to completion.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopDebounceLocked()
	c.stopRevertLocked()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// fire runs when the debounce timer armed as seq elapses.
func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if seq != c.armSeq || c.closed {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	if !c.persistMu.TryLock() {
		c.rerun = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	defer c.unlockPersist()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SaveTimeout)
	defer cancel()
	if err := c.persist(ctx); errors.Is(err, ErrEmptyTitle) {
		c.cfg.Logger.Debug("sync: save skipped, empty title")
	}
}

// unlockPersist releases persistMu and re-arms the debounce timer for a
// save that fired while this one was in flight.
func (c *Controller) unlockPersist() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistMu.Unlock()
	if c.rerun && !c.closed {
		c.rerun = false
		c.armLocked()
	}
}

// persist runs the save protocol. persistMu must be held.
func (c *Controller) persist(ctx context.Context) error {
	c.mu.Lock()
	gen := c.dirtyGen
	c.mu.Unlock()

	note, blocks := c.src.Snapshot()
	if strings.TrimSpace(note.Title) == "" {
		return ErrEmptyTitle
	}

	c.mu.Lock()
	if c.dirtyGen == gen {
		c.stopDebounceLocked()
	}
	c.stopRevertLocked()
	c.setStateLocked(State{Status: StatusSaving, LastSavedAt: c.state.LastSavedAt})
	c.mu.Unlock()

	err := c.save(ctx, note, blocks)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.cfg.Logger.Error("sync: save failed",
			slog.String("note_id", note.ID),
			slog.String("error", err.Error()))
		c.setStateLocked(State{Status: StatusError, LastSavedAt: c.state.LastSavedAt})
		if !c.closed {
			c.revert = c.cfg.Clock.AfterFunc(c.cfg.ErrorRevert, c.revertToUnsaved)
		}
		return err
	}

	st := State{Status: StatusSaved, LastSavedAt: c.cfg.Clock.Now()}
	if c.dirtyGen != gen {
		st.Status = StatusUnsaved
	}
	c.setStateLocked(st)
	return nil
}

// save writes the note, then every block in sequence order.
func (c *Controller) save(ctx context.Context, note models.Note, blocks []models.Block) error {
	content := models.DerivedContent(blocks)

	if note.Persisted() {
		updated, err := c.store.UpdateNote(ctx, note.ID, note.Title, content)
		if err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		c.notify(NoteUpdated, updated)
		note = updated
	} else {
		created, err := c.store.CreateNote(ctx, note.Title, content)
		if err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		c.src.AdoptNote(created)
		c.notify(NoteCreated, created)
		note = created
	}

	for i, b := range blocks {
		if !c.src.Contains(b.ID) {
			continue
		}
		in := storage.InputFrom(b, i)
		if !b.ID.IsProvisional() {
			if _, err := c.store.UpdateBlock(ctx, b.ID.Value(), in); err != nil {
				return fmt.Errorf("update block %s: %w", b.ID, err)
			}
			continue
		}

		stored, err := c.store.CreateBlock(ctx, note.ID, in)
		if err != nil {
			return fmt.Errorf("create block %s: %w", b.ID, err)
		}
		if !c.src.Promote(b.ID, stored) {
			// Removed locally while the create was in flight.
			if err := c.store.DeleteBlock(ctx, stored.ID.Value()); err != nil {
				c.cfg.Logger.Warn("sync: orphan block delete failed",
					slog.String("block_id", stored.ID.Value()),
					slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

func (c *Controller) revertToUnsaved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revert = nil
	if c.state.Status == StatusError {
		c.setStateLocked(State{Status: StatusUnsaved, LastSavedAt: c.state.LastSavedAt})
	}
}

func (c *Controller) notify(kind string, n models.Note) {
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.NoteListChanged(kind, n)
	}
}

func (c *Controller) armLocked() {
	c.stopDebounceLocked()
	c.armSeq++
	seq := c.armSeq
	c.debounce = c.cfg.Clock.AfterFunc(c.cfg.Debounce, func() { c.fire(seq) })
}

func (c *Controller) stopDebounceLocked() {
	c.armSeq++
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

func (c *Controller) stopRevertLocked() {
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.closed {
		return
	}
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
