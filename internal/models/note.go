// Package models defines the domain types for blocknote.
package models

import (
	"strings"
	"time"
)

// Note is a title plus the denormalized text of its blocks.
// An empty ID means the note has not been persisted yet.
type Note struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Persisted reports whether the note has a server-assigned identity.
func (n Note) Persisted() bool {
	return n.ID != ""
}

// DerivedContent joins block contents one per line, in sequence order.
func DerivedContent(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Content
	}
	return strings.Join(parts, "\n")
}
