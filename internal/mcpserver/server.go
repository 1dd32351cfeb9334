// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the block editor as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/editor"
	"github.com/starford/blocknote/internal/inline"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/slash"
	"github.com/starford/blocknote/internal/storage"
	"github.com/starford/blocknote/internal/syncer"
)

// Directory is the read side used to find notes to open.
type Directory interface {
	ListNotes(ctx context.Context, limit, offset int) ([]models.Note, int, error)
	GetNote(ctx context.Context, noteID string) (models.Note, error)
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
}

// Server wraps the MCP server with editor tools.
type Server struct {
	mcp     *server.MCPServer
	session *editor.Session
	dir     Directory
	files   attachments.Provider
	logger  *slog.Logger
}

// New creates a new MCP server with all editor tools registered. files may
// be nil, in which case upload_image is not offered.
func New(session *editor.Session, dir Directory, files attachments.Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{session: session, dir: dir, files: files, logger: logger}

	s.mcp = server.NewMCPServer(
		"Blocknote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("open_note",
		mcp.WithDescription("Open a note for editing. Omit id to start a new, unsaved note. "+
			"Pending changes to the previously open note are discarded unless saved first."),
		mcp.WithString("id", mcp.Description("Note id from list_notes or search_notes")),
	), s.openNote)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the open note: title, blocks with their indexes, slash menu and save status."),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("set_title",
		mcp.WithDescription("Set the title of the open note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
	), s.setTitle)

	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert an empty block after the given index (-1 inserts at the top). "+
			"Read the blocknote://block-format resource for block types."),
		mcp.WithNumber("after", mcp.Required(), mcp.Description("Index to insert after")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Block type"),
			mcp.Enum("text", "heading", "code", "image", "link", "quote")),
		mcp.WithString("content", mcp.Description("Optional initial content")),
	), s.insertBlock)

	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Replace the content and/or metadata of a block. Link content is "+
			"normalized to an absolute URL and titled with its host unless metadata gives a title."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Block index")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithObject("metadata", mcp.Description("Type-specific metadata, e.g. {\"level\": 1} for headings")),
	), s.updateBlock)

	s.mcp.AddTool(mcp.NewTool("change_block_type",
		mcp.WithDescription("Change a block's type in place. Content is cleared."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Block index")),
		mcp.WithString("type", mcp.Required(), mcp.Description("New block type")),
	), s.changeBlockType)

	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block. The last remaining block cannot be deleted."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Block index")),
	), s.deleteBlock)

	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move the block at index 'from' to index 'to', shifting the blocks in between."),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Index of the block to move")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Index it should end up at")),
	), s.moveBlock)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Save the open note now instead of waiting for the autosave delay."),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Permanently delete the open note and all its blocks."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("slash_menu",
		mcp.WithDescription("List the block types matching a slash-command filter, as typed after '/'."),
		mcp.WithString("filter", mcp.Description("Filter text (empty lists everything)")),
	), s.slashMenu)

	s.mcp.AddTool(mcp.NewTool("render_inline",
		mcp.WithDescription("Split text into inline Markdown segments (bold, italic, strikethrough, code, normal)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to tokenize")),
	), s.renderInline)

	if files != nil {
		s.mcp.AddTool(mcp.NewTool("upload_image",
			mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI and return its "+
				"/attachments URL. With index, the image block at that index is pointed at it."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
			mcp.WithString("filename", mcp.Description("Original file name, used for the extension and alt text")),
			mcp.WithNumber("index", mcp.Description("Image block to update")),
		), s.uploadImage)
	}

	s.mcp.AddResource(
		mcp.NewResource("blocknote://block-format", "Block Format",
			mcp.WithResourceDescription("Block types, their metadata and inline Markdown marks."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type confirmKey struct{}

// Confirmer approves note deletion when the calling tool passed confirm=true.
// Pass it in the editor.SessionConfig of the session given to New.
func Confirmer() editor.Confirmer {
	return editor.ConfirmFunc(func(ctx context.Context, _ string) (bool, error) {
		ok, _ := ctx.Value(confirmKey{}).(bool)
		return ok, nil
	})
}

// documentView is the get_document payload.
type documentView struct {
	Note   models.Note      `json:"note"`
	Blocks []models.Block   `json:"blocks"`
	Menu   editor.MenuState `json:"menu"`
	Status syncer.Status    `json:"status"`
	Label  string           `json:"label"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	notes, total, err := s.dir.ListNotes(ctx, getInt(args, "limit", 50), getInt(args, "offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": notes, "total": total})
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.dir.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) openNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["id"].(string)
	if id == "" {
		s.session.Open(ctx, models.Note{})
		return s.document()
	}
	note, err := s.dir.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open %s: %v", id, err)), nil
	}
	s.session.Open(ctx, note)
	return s.document()
}

func (s *Server) getDocument(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.document()
}

func (s *Server) document() (*mcp.CallToolResult, error) {
	doc, ctrl := s.session.Document(), s.session.Controller()
	if doc == nil || ctrl == nil {
		return mcp.NewToolResultError(editor.ErrNoNote.Error()), nil
	}
	st := ctrl.State()
	return jsonResult(documentView{
		Note:   doc.Note(),
		Blocks: doc.Blocks(),
		Menu:   doc.Menu(),
		Status: st.Status,
		Label:  st.Label(),
	})
}

func (s *Server) setTitle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.SetTitle(title); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("title set"), nil
}

func (s *Server) insertBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t, err := blockType(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	at, err := s.session.InsertAfter(getInt(args, "after", -1), t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content, ok := args["content"].(string); ok && content != "" {
		if err := s.setContent(at, t, content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return jsonResult(map[string]int{"index": at})
}

func (s *Server) updateBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	index := getInt(args, "index", -1)
	doc := s.session.Document()
	if doc == nil {
		return mcp.NewToolResultError(editor.ErrNoNote.Error()), nil
	}
	b, ok := doc.Block(index)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no block at index %d", index)), nil
	}

	var meta models.Metadata
	if raw, ok := args["metadata"].(map[string]any); ok {
		m, err := models.DecodeMetadata(b.Type, raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		meta = m
	}
	if content, ok := args["content"].(string); ok {
		if err := s.setContent(index, b.Type, content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	// Explicit metadata wins over the host title set for link content.
	if meta != nil {
		if _, err := s.session.UpdateContent(index, editor.SetMeta(meta)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	b, _ = doc.Block(index)
	return jsonResult(b)
}

// setContent routes link content through normalization.
func (s *Server) setContent(index int, t models.BlockType, content string) error {
	if t == models.BlockLink && content != "" {
		return s.session.SetLink(index, content)
	}
	_, err := s.session.UpdateContent(index, editor.SetContent(content))
	return err
}

func (s *Server) changeBlockType(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t, err := blockType(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index := getInt(args, "index", -1)
	if err := s.session.ReplaceType(index, t); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("block %d is now %s", index, t)), nil
}

func (s *Server) deleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index := getInt(req.GetArguments(), "index", -1)
	ok, err := s.session.Delete(ctx, index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("block %d was not deleted (missing or the only block)", index)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted block %d", index)), nil
}

func (s *Server) moveBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	doc := s.session.Document()
	if doc == nil {
		return mcp.NewToolResultError(editor.ErrNoNote.Error()), nil
	}
	from, okFrom := doc.Block(getInt(args, "from", -1))
	to, okTo := doc.Block(getInt(args, "to", -1))
	if !okFrom || !okTo {
		return mcp.NewToolResultError("from and to must be valid block indexes"), nil
	}

	drag := s.session.Drag()
	drag.Start(from.ID)
	if !drag.End(&to.ID) {
		return mcp.NewToolResultText("order unchanged"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved block to index %d", doc.IndexOf(from.ID))), nil
}

func (s *Server) saveNote(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Save(ctx); err != nil {
		if errors.Is(err, syncer.ErrEmptyTitle) {
			return mcp.NewToolResultError("set a title before saving"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.document()
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, _ := req.GetArguments()["confirm"].(bool)
	ctx = context.WithValue(ctx, confirmKey{}, confirm)
	if err := s.session.DeleteNote(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("note deleted"), nil
}

func (s *Server) slashMenu(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, _ := req.GetArguments()["filter"].(string)
	return jsonResult(slash.Match(slash.Registry, filter))
}

func (s *Server) renderInline(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segs := inline.Tokenize(text)
	if segs == nil {
		segs = []inline.Segment{}
	}
	return jsonResult(segs)
}

func (s *Server) readBlockFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "blocknote://block-format",
			MIMEType: "text/markdown",
			Text:     BlockFormatContract,
		},
	}, nil
}

func blockType(args map[string]any) (models.BlockType, error) {
	raw, _ := args["type"].(string)
	return models.ParseBlockType(raw)
}

// getInt reads a JSON number argument.
func getInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
