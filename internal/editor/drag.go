package editor

import (
	"sync"

	"github.com/starford/blocknote/internal/inline"
	"github.com/starford/blocknote/internal/models"
)

// Reorderer is the store a drag gesture is applied to.
type Reorderer interface {
	BlockByID(id models.BlockID) (models.Block, bool)
	Reorder(src, tgt models.BlockID) bool
}

// Preview is the read-only rendering of a dragged block.
type Preview struct {
	BlockID  models.BlockID   `json:"block_id"`
	Type     models.BlockType `json:"type"`
	Text     string           `json:"text"`
	Segments []inline.Segment `json:"segments,omitempty"`
}

var placeholders = map[models.BlockType]string{
	models.BlockText:    "Type something...",
	models.BlockHeading: "Heading",
	models.BlockQuote:   "Write a quote...",
	models.BlockCode:    "// code",
	models.BlockImage:   "Image",
	models.BlockLink:    "Link",
}

// PreviewOf renders b for the drag overlay. Empty blocks show their
// type's placeholder; images show their alt text.
func PreviewOf(b models.Block) Preview {
	p := Preview{BlockID: b.ID, Type: b.Type, Text: b.Content}
	switch b.Type {
	case models.BlockImage:
		p.Text = ""
		if m, ok := b.Meta.(models.ImageMeta); ok {
			p.Text = m.Alt
		}
	case models.BlockText, models.BlockHeading, models.BlockQuote:
		if b.Content != "" {
			p.Segments = inline.Tokenize(b.Content)
		}
	}
	if p.Text == "" {
		p.Text = placeholders[b.Type]
	}
	return p
}

// DragCoordinator tracks one drag gesture at a time.
type DragCoordinator struct {
	store Reorderer

	mu     sync.Mutex
	active bool
	source models.BlockID
}

// NewDragCoordinator returns a coordinator applying drops to store.
func NewDragCoordinator(store Reorderer) *DragCoordinator {
	return &DragCoordinator{store: store}
}

// Start begins dragging the block with id.
func (c *DragCoordinator) Start(id models.BlockID) bool {
	if _, ok := c.store.BlockByID(id); !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.source = id
	return true
}

// Active reports whether a drag is in progress.
func (c *DragCoordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Preview returns the overlay for the dragged block.
func (c *DragCoordinator) Preview() (Preview, bool) {
	c.mu.Lock()
	src, active := c.source, c.active
	c.mu.Unlock()
	if !active {
		return Preview{}, false
	}
	b, ok := c.store.BlockByID(src)
	if !ok {
		return Preview{}, false
	}
	return PreviewOf(b), true
}

// End finishes the drag. target is the block under the release point, or
// nil when released outside any block. It reports whether the order changed.
func (c *DragCoordinator) End(target *models.BlockID) bool {
	c.mu.Lock()
	src, active := c.source, c.active
	c.active = false
	c.source = models.BlockID{}
	c.mu.Unlock()

	if !active || target == nil || *target == src {
		return false
	}
	return c.store.Reorder(src, *target)
}

// Cancel abandons the drag without reordering.
func (c *DragCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.source = models.BlockID{}
}
