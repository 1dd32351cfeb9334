// Package slash implements the "/" block-type command menu.
package slash

import (
	"strings"

	"github.com/starford/blocknote/internal/models"
)

// Command is one entry in the block-type menu.
type Command struct {
	Type        models.BlockType `json:"type"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
	Keywords    []string         `json:"keywords"`
}

// Registry holds every insertable block type, in display order.
var Registry = []Command{
	{Type: models.BlockText, Label: "Text", Description: "Plain paragraph", Keywords: []string{"text", "paragraph", "plain"}},
	{Type: models.BlockHeading, Label: "Heading", Description: "Section heading", Keywords: []string{"heading", "title", "header", "h1", "h2", "h3"}},
	{Type: models.BlockCode, Label: "Code", Description: "Code snippet", Keywords: []string{"code", "snippet", "script", "programming"}},
	{Type: models.BlockImage, Label: "Image", Description: "Upload an image", Keywords: []string{"image", "picture", "photo"}},
	{Type: models.BlockLink, Label: "Link", Description: "Web link with preview", Keywords: []string{"link", "url", "web"}},
	{Type: models.BlockQuote, Label: "Quote", Description: "Quotation", Keywords: []string{"quote", "blockquote", "citation"}},
}

// Match returns the registry entries whose type, label or keywords contain
// filter, case-insensitively. An empty filter matches everything.
func Match(registry []Command, filter string) []Command {
	if filter == "" {
		return append([]Command(nil), registry...)
	}
	search := strings.ToLower(filter)
	var out []Command
	for _, c := range registry {
		if matches(c, search) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c Command, search string) bool {
	if strings.Contains(string(c.Type), search) || strings.Contains(strings.ToLower(c.Label), search) {
		return true
	}
	for _, k := range c.Keywords {
		if strings.Contains(strings.ToLower(k), search) {
			return true
		}
	}
	return false
}

// Menu is the filtered command list plus a selection cursor.
type Menu struct {
	registry []Command
	filter   string
	items    []Command
	cursor   int
}

// NewMenu returns a menu over registry with an empty filter.
func NewMenu(registry []Command) *Menu {
	m := &Menu{registry: registry}
	m.items = Match(registry, "")
	return m
}

// SetFilter refilters the menu. The cursor resets only when the filter changes.
func (m *Menu) SetFilter(filter string) {
	if filter == m.filter && m.items != nil {
		return
	}
	m.filter = filter
	m.items = Match(m.registry, filter)
	m.cursor = 0
}

// Filter returns the current filter text.
func (m *Menu) Filter() string { return m.filter }

// Items returns the filtered commands.
func (m *Menu) Items() []Command { return m.items }

// Cursor returns the selected index into Items.
func (m *Menu) Cursor() int { return m.cursor }

// Next advances the cursor, wrapping at the end.
func (m *Menu) Next() {
	if n := len(m.items); n > 0 {
		m.cursor = (m.cursor + 1) % n
	}
}

// Prev moves the cursor back, wrapping at the start.
func (m *Menu) Prev() {
	if n := len(m.items); n > 0 {
		m.cursor = (m.cursor - 1 + n) % n
	}
}

// Confirm returns the selected block type. ok is false when nothing matches.
func (m *Menu) Confirm() (t models.BlockType, ok bool) {
	if len(m.items) == 0 {
		return "", false
	}
	return m.items[m.cursor].Type, true
}
