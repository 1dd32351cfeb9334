package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/blocknote/internal/editor"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
	"github.com/starford/blocknote/internal/syncer"
	"github.com/starford/blocknote/internal/testutil"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type docResult struct {
	Note   models.Note      `json:"note"`
	Blocks []models.Block   `json:"blocks"`
	Menu   editor.MenuState `json:"menu"`
	Status string           `json:"status"`
	Label  string           `json:"label"`
}

func testServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	_, files := testutil.TestAttachments(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	session := editor.NewSession(db, editor.SessionConfig{
		Sync: syncer.Config{
			Clock: testutil.NewManualClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		},
		Confirmer: Confirmer(),
		Logger:    logger,
	})
	t.Cleanup(session.Close)

	return New(session, db, files, logger), db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_notes":        srv.listNotes,
		"search_notes":      srv.searchNotes,
		"open_note":         srv.openNote,
		"get_document":      srv.getDocument,
		"set_title":         srv.setTitle,
		"insert_block":      srv.insertBlock,
		"update_block":      srv.updateBlock,
		"change_block_type": srv.changeBlockType,
		"delete_block":      srv.deleteBlock,
		"move_block":        srv.moveBlock,
		"save_note":         srv.saveNote,
		"delete_note":       srv.deleteNote,
		"slash_menu":        srv.slashMenu,
		"render_inline":     srv.renderInline,
		"upload_image":      srv.uploadImage,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustSucceed(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
	return resultText(r)
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(mustSucceed(t, r)), &v); err != nil {
		t.Fatalf("decode %s: %v", resultText(r), err)
	}
	return v
}

func document(t *testing.T, srv *Server) docResult {
	t.Helper()
	return decode[docResult](t, callTool(t, srv, "get_document", nil))
}

func TestGetDocumentWithoutNote(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_document", nil)
	if !r.IsError {
		t.Fatal("expected error without an open note")
	}
	if r := callTool(t, srv, "set_title", map[string]any{"title": "x"}); !r.IsError {
		t.Error("set_title should fail without an open note")
	}
}

func TestOpenNewNote(t *testing.T) {
	srv, _ := testServer(t)
	doc := decode[docResult](t, callTool(t, srv, "open_note", map[string]any{}))
	if doc.Note.ID != "" {
		t.Errorf("new note id = %q", doc.Note.ID)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Type != models.BlockText {
		t.Fatalf("blocks = %+v", doc.Blocks)
	}
	if !doc.Blocks[0].ID.IsProvisional() {
		t.Error("seed block should have a provisional id")
	}
	if doc.Status != "idle" {
		t.Errorf("status = %q", doc.Status)
	}
}

func TestEditAndSave(t *testing.T) {
	srv, db := testServer(t)
	ctx := context.Background()
	callTool(t, srv, "open_note", nil)

	mustSucceed(t, callTool(t, srv, "set_title", map[string]any{"title": "Trip"}))
	mustSucceed(t, callTool(t, srv, "update_block", map[string]any{"index": float64(0), "content": "Pack **light**"}))
	ins := decode[map[string]int](t, callTool(t, srv, "insert_block", map[string]any{
		"after": float64(0), "type": "heading", "content": "Day one",
	}))
	if ins["index"] != 1 {
		t.Errorf("inserted at %d, want 1", ins["index"])
	}
	mustSucceed(t, callTool(t, srv, "update_block", map[string]any{
		"index": float64(1), "metadata": map[string]any{"level": float64(1)},
	}))

	doc := decode[docResult](t, callTool(t, srv, "save_note", nil))
	if doc.Note.ID == "" {
		t.Fatal("note not persisted")
	}
	if doc.Status != "saved" {
		t.Errorf("status = %q", doc.Status)
	}
	for _, b := range doc.Blocks {
		if b.ID.IsProvisional() {
			t.Errorf("block %s not promoted", b.ID)
		}
	}

	blocks, err := db.ListBlocks(ctx, doc.Note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[1].Type != models.BlockHeading {
		t.Fatalf("stored blocks = %+v", blocks)
	}
	if meta := blocks[1].Meta.(models.HeadingMeta); meta.Level != 1 {
		t.Errorf("heading level = %d", meta.Level)
	}
	if doc.Note.Content != "Pack **light**\nDay one" {
		t.Errorf("content = %q", doc.Note.Content)
	}

	list := decode[struct {
		Notes []models.Note `json:"notes"`
		Total int           `json:"total"`
	}](t, callTool(t, srv, "list_notes", nil))
	if list.Total != 1 || list.Notes[0].Title != "Trip" {
		t.Errorf("list = %+v", list)
	}

	results := decode[[]storage.SearchResult](t, callTool(t, srv, "search_notes", map[string]any{"query": "light"}))
	if len(results) != 1 || results[0].ID != doc.Note.ID {
		t.Errorf("search = %+v", results)
	}

	reopened := decode[docResult](t, callTool(t, srv, "open_note", map[string]any{"id": doc.Note.ID}))
	if len(reopened.Blocks) != 2 || reopened.Blocks[1].Content != "Day one" {
		t.Errorf("reopened blocks = %+v", reopened.Blocks)
	}
}

func TestSaveWithoutTitle(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "open_note", nil)
	r := callTool(t, srv, "save_note", nil)
	if !r.IsError || !strings.Contains(resultText(r), "title") {
		t.Errorf("save without title = %q", resultText(r))
	}
}

func TestOpenUnknownNote(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "open_note", map[string]any{"id": "missing"}); !r.IsError {
		t.Error("expected error for unknown note")
	}
}

func TestUpdateBlockRejects(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "open_note", nil)

	if r := callTool(t, srv, "update_block", map[string]any{"index": float64(3), "content": "x"}); !r.IsError {
		t.Error("expected error for out-of-range index")
	}
	callTool(t, srv, "change_block_type", map[string]any{"index": float64(0), "type": "heading"})
	if r := callTool(t, srv, "update_block", map[string]any{
		"index": float64(0), "metadata": map[string]any{"level": float64(9)},
	}); !r.IsError {
		t.Error("expected error for heading level 9")
	}
	if r := callTool(t, srv, "change_block_type", map[string]any{"index": float64(0), "type": "table"}); !r.IsError {
		t.Error("expected error for unknown type")
	}
}

func TestLinkContentNormalized(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "open_note", nil)
	mustSucceed(t, callTool(t, srv, "change_block_type", map[string]any{"index": float64(0), "type": "link"}))

	b := decode[models.Block](t, callTool(t, srv, "update_block", map[string]any{
		"index": float64(0), "content": "example.com/docs",
	}))
	if b.Content != "https://example.com/docs" {
		t.Errorf("content = %q", b.Content)
	}
	if meta := b.Meta.(models.LinkMeta); meta.Title != "example.com" {
		t.Errorf("title = %q", meta.Title)
	}

	b = decode[models.Block](t, callTool(t, srv, "update_block", map[string]any{
		"index": float64(0), "content": "go.dev/doc", "metadata": map[string]any{"title": "Go docs"},
	}))
	if b.Content != "https://go.dev/doc" {
		t.Errorf("content = %q", b.Content)
	}
	if meta := b.Meta.(models.LinkMeta); meta.Title != "Go docs" {
		t.Errorf("explicit title replaced: %q", meta.Title)
	}
}

func TestDeleteAndMoveBlocks(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "open_note", nil)

	if r := callTool(t, srv, "delete_block", map[string]any{"index": float64(0)}); !r.IsError {
		t.Error("deleting the only block should fail")
	}

	callTool(t, srv, "update_block", map[string]any{"index": float64(0), "content": "a"})
	callTool(t, srv, "insert_block", map[string]any{"after": float64(0), "type": "text", "content": "b"})
	callTool(t, srv, "insert_block", map[string]any{"after": float64(1), "type": "text", "content": "c"})

	mustSucceed(t, callTool(t, srv, "move_block", map[string]any{"from": float64(0), "to": float64(2)}))
	got := contents(document(t, srv).Blocks)
	if got != "b,c,a" {
		t.Errorf("after move = %s", got)
	}

	mustSucceed(t, callTool(t, srv, "delete_block", map[string]any{"index": float64(1)}))
	if got := contents(document(t, srv).Blocks); got != "b,a" {
		t.Errorf("after delete = %s", got)
	}

	if r := callTool(t, srv, "move_block", map[string]any{"from": float64(0), "to": float64(7)}); !r.IsError {
		t.Error("expected error for invalid target")
	}
}

func contents(blocks []models.Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Content
	}
	return strings.Join(parts, ",")
}

func TestDeleteNote(t *testing.T) {
	srv, db := testServer(t)
	ctx := context.Background()
	callTool(t, srv, "open_note", nil)
	callTool(t, srv, "set_title", map[string]any{"title": "Doomed"})
	doc := decode[docResult](t, callTool(t, srv, "save_note", nil))

	if r := callTool(t, srv, "delete_note", map[string]any{"confirm": false}); !r.IsError {
		t.Fatal("delete without confirm should fail")
	}
	if _, err := db.GetNote(ctx, doc.Note.ID); err != nil {
		t.Fatalf("note gone after declined delete: %v", err)
	}

	mustSucceed(t, callTool(t, srv, "delete_note", map[string]any{"confirm": true}))
	if _, err := db.GetNote(ctx, doc.Note.ID); err == nil {
		t.Error("note still stored after delete")
	}
	if r := callTool(t, srv, "get_document", nil); !r.IsError {
		t.Error("session should be closed after delete")
	}
}

func TestSlashMenu(t *testing.T) {
	srv, _ := testServer(t)
	items := decode[[]struct {
		Type string `json:"type"`
	}](t, callTool(t, srv, "slash_menu", map[string]any{"filter": "cod"}))
	if len(items) != 1 || items[0].Type != "code" {
		t.Errorf("items = %+v", items)
	}

	all := decode[[]json.RawMessage](t, callTool(t, srv, "slash_menu", nil))
	if len(all) != len(models.BlockTypes) {
		t.Errorf("empty filter returned %d items", len(all))
	}
}

func TestRenderInline(t *testing.T) {
	srv, _ := testServer(t)
	segs := decode[[]struct {
		Text string `json:"text"`
		Kind string `json:"kind"`
	}](t, callTool(t, srv, "render_inline", map[string]any{"text": "a **b**"}))
	if len(segs) != 2 || segs[1].Text != "b" || segs[1].Kind != "bold" {
		t.Errorf("segments = %+v", segs)
	}

	empty := mustSucceed(t, callTool(t, srv, "render_inline", map[string]any{"text": ""}))
	if empty != "[]" {
		t.Errorf("empty text = %s", empty)
	}
}

func TestUploadImageDataURI(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "open_note", nil)
	callTool(t, srv, "change_block_type", map[string]any{"index": float64(0), "type": "image"})

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	res := decode[struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		Index    *int   `json:"index"`
	}](t, callTool(t, srv, "upload_image", map[string]any{
		"url": uri, "filename": "chart.png", "index": float64(0),
	}))
	if !strings.HasPrefix(res.URL, "/attachments/") || !strings.HasSuffix(res.Filename, ".png") {
		t.Errorf("result = %+v", res)
	}
	if res.Index == nil || *res.Index != 0 {
		t.Errorf("index = %v", res.Index)
	}

	b := document(t, srv).Blocks[0]
	if b.Content != res.URL {
		t.Errorf("image block content = %q, want %q", b.Content, res.URL)
	}
	if meta := b.Meta.(models.ImageMeta); meta.Alt != "chart.png" {
		t.Errorf("alt = %q", meta.Alt)
	}

	rc, obj, err := srv.files.Open(context.Background(), res.Filename)
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	rc.Close()
	if obj.Size != int64(len(pngData)) {
		t.Errorf("stored size = %d", obj.Size)
	}
}

func TestUploadImageRejects(t *testing.T) {
	srv, _ := testServer(t)
	cases := map[string]string{
		"plain data uri":   "data:image/png,abc",
		"unsupported mime": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")),
		"bad magic":        "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png")),
		"loopback":         "http://127.0.0.1/x.png",
		"metadata host":    "http://169.254.169.254/latest",
		"scheme":           "ftp://example.com/x.png",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "upload_image", map[string]any{"url": uri}); !r.IsError {
				t.Errorf("expected error, got %s", resultText(r))
			}
		})
	}
}

func listedTools(t *testing.T, srv *Server) string {
	t.Helper()
	msg := srv.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestUploadToolOnlyWithFiles(t *testing.T) {
	srv, _ := testServer(t)
	if tools := listedTools(t, srv); !strings.Contains(tools, `"upload_image"`) {
		t.Errorf("upload_image not listed: %s", tools)
	}

	db := testutil.TestDB(t)
	session := editor.NewSession(db, editor.SessionConfig{})
	t.Cleanup(session.Close)
	bare := New(session, db, nil, nil)
	tools := listedTools(t, bare)
	if strings.Contains(tools, `"upload_image"`) {
		t.Error("upload_image listed without an attachment store")
	}
	if !strings.Contains(tools, `"get_document"`) {
		t.Error("get_document not listed")
	}
}

func TestFilenameFromURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com/img/cat.png?x=1": "cat.png",
		"https://example.com/img/cat":         "",
		"https://example.com/":                "",
		"data:image/png;base64,AAAA":          "",
	}
	for in, want := range cases {
		if got := filenameFromURL(in); got != want {
			t.Errorf("filenameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBlockFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readBlockFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	for _, typ := range models.BlockTypes {
		if !strings.Contains(text, "| "+string(typ)) {
			t.Errorf("contract missing block type %s", typ)
		}
	}
}
