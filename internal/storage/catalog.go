package storage

import (
	"context"

	"github.com/starford/blocknote/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Catalog is the read side the sidebar, search and janitor depend on.
// Consumers should depend on this interface rather than the concrete *DB.
type Catalog interface {
	ListNotes(ctx context.Context, limit, offset int) ([]models.Note, int, error)
	GetNote(ctx context.Context, noteID string) (models.Note, error)
	GetBlock(ctx context.Context, blockID string) (models.Block, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	ImageSources(ctx context.Context) ([]string, error)
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ Provider = (*DB)(nil)
	_ Catalog  = (*DB)(nil)
)
