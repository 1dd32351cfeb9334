package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/models"
)

// Remote is a Provider that talks to a blocknote server over its REST API.
type Remote struct {
	base   string
	token  string
	client *http.Client
}

// NewRemote returns a client for the server at baseURL (for example
// "http://localhost:8080"). token is sent as a Bearer token when non-empty.
func NewRemote(baseURL, token string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{base: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type noteBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type blockBody struct {
	Type     models.BlockType `json:"type"`
	Content  string           `json:"content"`
	Metadata map[string]any   `json:"metadata"`
	Position int              `json:"position"`
}

func blockBodyFrom(in BlockInput) blockBody {
	meta := map[string]any{}
	if in.Meta != nil {
		meta = in.Meta.Map()
	}
	return blockBody{Type: in.Type, Content: in.Content, Metadata: meta, Position: in.Position}
}

// ListBlocks implements Provider.
func (r *Remote) ListBlocks(ctx context.Context, noteID string) ([]models.Block, error) {
	var out []models.Block
	if err := r.do(ctx, http.MethodGet, "/api/blocks/note/"+url.PathEscape(noteID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Block{}
	}
	return out, nil
}

// CreateNote implements Provider.
func (r *Remote) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	var n models.Note
	err := r.do(ctx, http.MethodPost, "/api/notes", noteBody{Title: title, Content: content}, &n)
	return n, err
}

// UpdateNote implements Provider.
func (r *Remote) UpdateNote(ctx context.Context, noteID, title, content string) (models.Note, error) {
	var n models.Note
	err := r.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(noteID), noteBody{Title: title, Content: content}, &n)
	return n, err
}

// DeleteNote implements Provider.
func (r *Remote) DeleteNote(ctx context.Context, noteID string) error {
	return r.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(noteID), nil, nil)
}

// CreateBlock implements Provider.
func (r *Remote) CreateBlock(ctx context.Context, noteID string, in BlockInput) (models.Block, error) {
	var b models.Block
	err := r.do(ctx, http.MethodPost, "/api/blocks/note/"+url.PathEscape(noteID), blockBodyFrom(in), &b)
	return b, err
}

// UpdateBlock implements Provider.
func (r *Remote) UpdateBlock(ctx context.Context, blockID string, in BlockInput) (models.Block, error) {
	var b models.Block
	err := r.do(ctx, http.MethodPut, "/api/blocks/"+url.PathEscape(blockID), blockBodyFrom(in), &b)
	return b, err
}

// DeleteBlock implements Provider.
func (r *Remote) DeleteBlock(ctx context.Context, blockID string) error {
	return r.do(ctx, http.MethodDelete, "/api/blocks/"+url.PathEscape(blockID), nil, nil)
}

// ListNotes returns a page of notes from the server.
func (r *Remote) ListNotes(ctx context.Context, limit, offset int) ([]models.Note, int, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var res struct {
		Notes []models.Note `json:"notes"`
		Total int           `json:"total"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/notes?"+q.Encode(), nil, &res); err != nil {
		return nil, 0, err
	}
	return res.Notes, res.Total, nil
}

// GetNote fetches one note.
func (r *Remote) GetNote(ctx context.Context, noteID string) (models.Note, error) {
	var n models.Note
	err := r.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(noteID), nil, &n)
	return n, err
}

// Search runs a full-text search on the server.
func (r *Remote) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	var res struct {
		Results []SearchResult `json:"results"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/search?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("storage: remote: encode: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, rd)
	if err != nil {
		return fmt.Errorf("storage: remote: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage: remote %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("storage: remote %s %s: decode: %w", method, path, err)
	}
	return nil
}

// statusError maps an error response back onto the apperr sentinels.
func statusError(method, path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = apperr.ErrNotFound
	case http.StatusBadRequest:
		sentinel = apperr.ErrInvalid
	case http.StatusConflict:
		sentinel = apperr.ErrConflict
	default:
		return fmt.Errorf("storage: remote %s %s: %s", method, path, msg)
	}
	return fmt.Errorf("storage: remote %s %s: %w: %s", method, path, sentinel, msg)
}

var _ Provider = (*Remote)(nil)
