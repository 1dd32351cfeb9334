package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/checksum"
	"github.com/starford/blocknote/internal/models"
)

const noteColumns = `id, title, content, checksum, created_at, updated_at`

const blockColumns = `id, note_id, type, content, metadata, position`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateNote inserts a note with a fresh id.
func (db *DB) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	now := time.Now().UTC()
	n := models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Checksum:  checksum.Note(title, content),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, n.Checksum, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: insert note: %w", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Content); err != nil {
		return models.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Note{}, fmt.Errorf("storage: commit: %w", err)
	}
	return n, nil
}

// UpdateNote replaces title and content of an existing note.
func (db *DB) UpdateNote(ctx context.Context, noteID, title, content string) (models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, checksum = ?, updated_at = ?
		WHERE id = ?
	`, title, content, checksum.Note(title, content), time.Now().UTC(), noteID)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: update note: %w", err)
	}
	if err := requireRow(res); err != nil {
		return models.Note{}, err
	}
	if err := ftsUpsert(tx, noteID, title, content); err != nil {
		return models.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Note{}, fmt.Errorf("storage: commit: %w", err)
	}
	return db.GetNote(ctx, noteID)
}

// DeleteNote removes a note, its blocks and its search entry.
func (db *DB) DeleteNote(ctx context.Context, noteID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, noteID)
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("storage: delete blocks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("storage: delete note: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// GetNote returns a single note.
func (db *DB) GetNote(ctx context.Context, noteID string) (models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, noteID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns a page of notes, most recently updated first, and the total count.
func (db *DB) ListNotes(ctx context.Context, limit, offset int) ([]models.Note, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM notes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count notes: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// ListBlocks returns the note's blocks ordered by position.
func (db *DB) ListBlocks(ctx context.Context, noteID string) ([]models.Block, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+blockColumns+` FROM blocks
		WHERE note_id = ?
		ORDER BY position ASC, created_at ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("storage: list blocks: %w", err)
	}
	defer rows.Close()

	out := []models.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBlock returns a single block.
func (db *DB) GetBlock(ctx context.Context, blockID string) (models.Block, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE id = ?`, blockID)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Block{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Block{}, fmt.Errorf("storage: get block: %w", err)
	}
	return b, nil
}

// CreateBlock inserts a block under noteID with a fresh id.
func (db *DB) CreateBlock(ctx context.Context, noteID string, in BlockInput) (models.Block, error) {
	in, metaJSON, err := prepareInput(in)
	if err != nil {
		return models.Block{}, err
	}
	if _, err := db.GetNote(ctx, noteID); err != nil {
		return models.Block{}, err
	}

	now := time.Now().UTC()
	b := models.Block{
		ID:       models.PersistedID(uuid.NewString()),
		NoteID:   noteID,
		Type:     in.Type,
		Content:  in.Content,
		Meta:     in.Meta,
		Position: in.Position,
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO blocks (id, note_id, type, content, metadata, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID.Value(), noteID, string(b.Type), b.Content, metaJSON, b.Position, now, now)
	if err != nil {
		return models.Block{}, fmt.Errorf("storage: insert block: %w", err)
	}
	return b, nil
}

// UpdateBlock replaces type, content, metadata and position of a block.
func (db *DB) UpdateBlock(ctx context.Context, blockID string, in BlockInput) (models.Block, error) {
	in, metaJSON, err := prepareInput(in)
	if err != nil {
		return models.Block{}, err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE blocks SET type = ?, content = ?, metadata = ?, position = ?, updated_at = ?
		WHERE id = ?
	`, string(in.Type), in.Content, metaJSON, in.Position, time.Now().UTC(), blockID)
	if err != nil {
		return models.Block{}, fmt.Errorf("storage: update block: %w", err)
	}
	if err := requireRow(res); err != nil {
		return models.Block{}, err
	}
	return db.GetBlock(ctx, blockID)
}

// DeleteBlock removes one block.
func (db *DB) DeleteBlock(ctx context.Context, blockID string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, blockID)
	if err != nil {
		return fmt.Errorf("storage: delete block: %w", err)
	}
	return requireRow(res)
}

// ImageSources returns the content (URL) of every non-empty image block.
func (db *DB) ImageSources(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT content FROM blocks WHERE type = ? AND content != ''`, string(models.BlockImage))
	if err != nil {
		return nil, fmt.Errorf("storage: image sources: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// prepareInput validates in, fills default metadata and encodes it.
func prepareInput(in BlockInput) (BlockInput, string, error) {
	if !in.Type.Valid() {
		return in, "", fmt.Errorf("%w: unknown block type %q", apperr.ErrInvalid, in.Type)
	}
	if in.Meta == nil {
		in.Meta = models.DefaultMetadata(in.Type)
	}
	if in.Meta.BlockType() != in.Type {
		return in, "", fmt.Errorf("%w: %w", apperr.ErrInvalid, models.ErrMetadataMismatch)
	}
	if err := in.Meta.Validate(); err != nil {
		return in, "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	in.Meta = models.Normalize(in.Meta)
	if in.Position < 0 {
		return in, "", fmt.Errorf("%w: negative position", apperr.ErrInvalid)
	}
	data, err := json.Marshal(in.Meta.Map())
	if err != nil {
		return in, "", fmt.Errorf("storage: encode metadata: %w", err)
	}
	return in, string(data), nil
}

func scanNote(r rowScanner) (models.Note, error) {
	var n models.Note
	err := r.Scan(&n.ID, &n.Title, &n.Content, &n.Checksum, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func scanBlock(r rowScanner) (models.Block, error) {
	var (
		b        models.Block
		id       string
		typ      string
		metaJSON string
	)
	if err := r.Scan(&id, &b.NoteID, &typ, &b.Content, &metaJSON, &b.Position); err != nil {
		return b, err
	}
	b.ID = models.PersistedID(id)
	t, err := models.ParseBlockType(typ)
	if err != nil {
		return b, fmt.Errorf("storage: block %s: %w", id, err)
	}
	b.Type = t
	var raw map[string]any
	if err := json.Unmarshal([]byte(metaJSON), &raw); err != nil {
		return b, fmt.Errorf("storage: block %s metadata: %w", id, err)
	}
	if b.Meta, err = models.DecodeMetadata(t, raw); err != nil {
		return b, fmt.Errorf("storage: block %s: %w", id, err)
	}
	return b, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
