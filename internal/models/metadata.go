package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/blocknote/internal/apperr"
)

// Metadata is the type-specific payload of a block. Each block type has
// exactly one implementation; values are validated on construction.
type Metadata interface {
	BlockType() BlockType
	Map() map[string]any
	Validate() error
}

// TextMeta carries nothing.
type TextMeta struct{}

// HeadingMeta carries the heading level (1-3).
type HeadingMeta struct{ Level int }

// CodeMeta carries the canonical lexer name, or "" for plain text.
type CodeMeta struct{ Language string }

// ImageMeta carries the alternate text.
type ImageMeta struct{ Alt string }

// LinkMeta carries the display title of the link.
type LinkMeta struct{ Title string }

// QuoteMeta carries the quote attribution.
type QuoteMeta struct{ Author string }

func (TextMeta) BlockType() BlockType    { return BlockText }
func (HeadingMeta) BlockType() BlockType { return BlockHeading }
func (CodeMeta) BlockType() BlockType    { return BlockCode }
func (ImageMeta) BlockType() BlockType   { return BlockImage }
func (LinkMeta) BlockType() BlockType    { return BlockLink }
func (QuoteMeta) BlockType() BlockType   { return BlockQuote }

func (TextMeta) Map() map[string]any      { return map[string]any{} }
func (m HeadingMeta) Map() map[string]any { return map[string]any{"level": m.Level} }
func (m CodeMeta) Map() map[string]any    { return map[string]any{"language": m.Language} }
func (m ImageMeta) Map() map[string]any   { return map[string]any{"alt": m.Alt} }
func (m LinkMeta) Map() map[string]any    { return map[string]any{"title": m.Title} }
func (m QuoteMeta) Map() map[string]any   { return map[string]any{"author": m.Author} }

func (TextMeta) Validate() error  { return nil }
func (ImageMeta) Validate() error { return nil }
func (LinkMeta) Validate() error  { return nil }
func (QuoteMeta) Validate() error { return nil }

// Validate checks the level is one of 1, 2 or 3.
func (m HeadingMeta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Level, validation.Required, validation.In(1, 2, 3)),
	)
}

// Validate checks the language resolves to a known lexer.
func (m CodeMeta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Language, validation.By(func(v interface{}) error {
			_, err := NormalizeLanguage(v.(string))
			return err
		})),
	)
}

// Normalize returns m in canonical form. Code languages are mapped to their
// lexer name; an unknown language is returned unchanged for Validate to reject.
func Normalize(m Metadata) Metadata {
	if cm, ok := m.(CodeMeta); ok {
		if lang, err := NormalizeLanguage(cm.Language); err == nil {
			cm.Language = lang
		}
		return cm
	}
	return m
}

// DefaultMetadata returns the metadata a fresh block of type t starts with.
func DefaultMetadata(t BlockType) Metadata {
	switch t {
	case BlockHeading:
		return HeadingMeta{Level: 2}
	case BlockCode:
		return CodeMeta{}
	case BlockImage:
		return ImageMeta{}
	case BlockLink:
		return LinkMeta{}
	case BlockQuote:
		return QuoteMeta{}
	default:
		return TextMeta{}
	}
}

// NormalizeLanguage maps a language name or alias to the canonical lexer name.
func NormalizeLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", fmt.Errorf("unknown language %q", lang)
	}
	return strings.ToLower(lexer.Config().Name), nil
}

// DecodeMetadata builds validated metadata for type t from a loosely typed
// map, as found in JSON payloads. Missing keys take the type's defaults.
func DecodeMetadata(t BlockType, raw map[string]any) (Metadata, error) {
	var m Metadata
	switch t {
	case BlockText:
		m = TextMeta{}
	case BlockHeading:
		level, err := intField(raw, "level", 2)
		if err != nil {
			return nil, err
		}
		m = HeadingMeta{Level: level}
	case BlockCode:
		lang, err := NormalizeLanguage(stringField(raw, "language"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
		m = CodeMeta{Language: lang}
	case BlockImage:
		m = ImageMeta{Alt: stringField(raw, "alt")}
	case BlockLink:
		m = LinkMeta{Title: stringField(raw, "title")}
	case BlockQuote:
		m = QuoteMeta{Author: stringField(raw, "author")}
	default:
		return nil, fmt.Errorf("%w: unknown block type %q", apperr.ErrInvalid, t)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s metadata: %v", apperr.ErrInvalid, t, err)
	}
	return m, nil
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw map[string]any, key string, def int) (int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrInvalid, key)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", apperr.ErrInvalid, key)
}

// ErrMetadataMismatch is returned when metadata does not belong to the block's type.
var ErrMetadataMismatch = errors.New("metadata does not match block type")
