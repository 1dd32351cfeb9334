package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
)

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Title   string `json:"title" example:"Hello"`
	Content string `json:"content" example:"World"`
}

// Validate checks the request.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
	)
}

// BlockRequest is the request body for creating or updating a block.
type BlockRequest struct {
	Type     string         `json:"type" example:"heading"`
	Content  string         `json:"content" example:"Introduction"`
	Metadata map[string]any `json:"metadata"`
	Position int            `json:"position" example:"0"`
}

// Validate checks the request.
func (r BlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Position, validation.Min(0)),
	)
}

// Input converts the request to a storage input, decoding its metadata.
func (r BlockRequest) Input() (storage.BlockInput, error) {
	if err := r.Validate(); err != nil {
		return storage.BlockInput{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	t, err := models.ParseBlockType(r.Type)
	if err != nil {
		return storage.BlockInput{}, err
	}
	meta, err := models.DecodeMetadata(t, r.Metadata)
	if err != nil {
		return storage.BlockInput{}, err
	}
	return storage.BlockInput{Type: t, Content: r.Content, Meta: meta, Position: r.Position}, nil
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []storage.SearchResult `json:"results"`
}

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	URL      string `json:"url" example:"/attachments/5f0c.png"`
	Filename string `json:"filename" example:"5f0c.png"`
	Original string `json:"original" example:"diagram.png"`
	Size     int64  `json:"size" example:"12345"`
}
