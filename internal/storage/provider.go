// Package storage defines the persistence contract the editor core saves
// through, with SQLite and HTTP implementations.
package storage

import (
	"context"

	"github.com/starford/blocknote/internal/models"
)

// BlockInput carries the mutable fields of a block on create and update.
type BlockInput struct {
	Type     models.BlockType
	Content  string
	Meta     models.Metadata
	Position int
}

// InputFrom returns the BlockInput for b placed at position.
func InputFrom(b models.Block, position int) BlockInput {
	return BlockInput{Type: b.Type, Content: b.Content, Meta: b.Meta, Position: position}
}

// Provider is the persistence collaborator for notes and their blocks.
// Every call either succeeds completely or returns a single error.
type Provider interface {
	// ListBlocks returns the note's blocks ordered by position.
	ListBlocks(ctx context.Context, noteID string) ([]models.Block, error)
	// CreateNote stores a new note and returns it with its assigned id.
	CreateNote(ctx context.Context, title, content string) (models.Note, error)
	// UpdateNote replaces the title and derived content of an existing note.
	UpdateNote(ctx context.Context, noteID, title, content string) (models.Note, error)
	// CreateBlock stores a new block under noteID and returns it with its assigned id.
	CreateBlock(ctx context.Context, noteID string, in BlockInput) (models.Block, error)
	// UpdateBlock replaces the fields of an existing block.
	UpdateBlock(ctx context.Context, blockID string, in BlockInput) (models.Block, error)
	// DeleteBlock removes one block.
	DeleteBlock(ctx context.Context, blockID string) error
	// DeleteNote removes a note together with its blocks.
	DeleteNote(ctx context.Context, noteID string) error
}
