package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/blocknote/internal/apperr"
)

// BlockType enumerates the kinds of content block a note can hold.
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockHeading BlockType = "heading"
	BlockCode    BlockType = "code"
	BlockImage   BlockType = "image"
	BlockLink    BlockType = "link"
	BlockQuote   BlockType = "quote"
)

// BlockTypes lists every block type in registry order.
var BlockTypes = []BlockType{BlockText, BlockHeading, BlockCode, BlockImage, BlockLink, BlockQuote}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	for _, bt := range BlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// ParseBlockType converts s into a BlockType.
func ParseBlockType(s string) (BlockType, error) {
	t := BlockType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown block type %q", apperr.ErrInvalid, s)
	}
	return t, nil
}

// provisionalPrefix marks provisional ids on the wire and in logs only.
const provisionalPrefix = "temp-"

// BlockID identifies a block. It is either provisional (generated locally,
// not yet stored) or persisted (assigned by storage). The two variants never
// compare equal, even when they carry the same raw value.
type BlockID struct {
	value       string
	provisional bool
}

// NewProvisionalID returns a fresh provisional id.
func NewProvisionalID() BlockID {
	return BlockID{value: uuid.NewString(), provisional: true}
}

// ProvisionalID wraps a locally generated token.
func ProvisionalID(token string) BlockID {
	return BlockID{value: token, provisional: true}
}

// PersistedID wraps a storage-assigned identifier.
func PersistedID(id string) BlockID {
	return BlockID{value: id}
}

// ParseBlockID decodes the external form produced by String.
func ParseBlockID(s string) BlockID {
	if tok, ok := strings.CutPrefix(s, provisionalPrefix); ok {
		return ProvisionalID(tok)
	}
	return PersistedID(s)
}

// IsProvisional reports whether the id still awaits a storage identity.
func (id BlockID) IsProvisional() bool { return id.provisional }

// IsZero reports whether id is unset.
func (id BlockID) IsZero() bool { return id.value == "" }

// Value returns the raw token or storage identifier.
func (id BlockID) Value() string { return id.value }

// String returns the external form of the id.
func (id BlockID) String() string {
	if id.provisional {
		return provisionalPrefix + id.value
	}
	return id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id BlockID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BlockID) UnmarshalText(b []byte) error {
	*id = ParseBlockID(string(b))
	return nil
}

// Block is one typed unit of note content.
type Block struct {
	ID       BlockID
	NoteID   string
	Type     BlockType
	Content  string
	Meta     Metadata
	Position int
}

// NewBlock returns an empty block of type t with that type's default metadata.
func NewBlock(id BlockID, t BlockType) Block {
	return Block{ID: id, Type: t, Meta: DefaultMetadata(t)}
}

type blockJSON struct {
	ID       BlockID        `json:"id"`
	NoteID   string         `json:"note_id,omitempty"`
	Type     BlockType      `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Position int            `json:"position"`
}

// MarshalJSON encodes the block with its metadata flattened to an object.
func (b Block) MarshalJSON() ([]byte, error) {
	meta := map[string]any{}
	if b.Meta != nil {
		meta = b.Meta.Map()
	}
	return json.Marshal(blockJSON{
		ID:       b.ID,
		NoteID:   b.NoteID,
		Type:     b.Type,
		Content:  b.Content,
		Metadata: meta,
		Position: b.Position,
	})
}

// UnmarshalJSON decodes and validates a block, including its metadata.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseBlockType(string(raw.Type))
	if err != nil {
		return err
	}
	meta, err := DecodeMetadata(t, raw.Metadata)
	if err != nil {
		return err
	}
	*b = Block{
		ID:       raw.ID,
		NoteID:   raw.NoteID,
		Type:     t,
		Content:  raw.Content,
		Meta:     meta,
		Position: raw.Position,
	}
	return nil
}
