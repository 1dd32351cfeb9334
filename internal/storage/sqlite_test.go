package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/blocknote/internal/apperr"
	"github.com/starford/blocknote/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "blocknote-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustNote(t *testing.T, db *DB, title, content string) models.Note {
	t.Helper()
	n, err := db.CreateNote(context.Background(), title, content)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	return n
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM blocks`).Scan(&count); err != nil {
		t.Fatalf("blocks table missing: %v", err)
	}
}

func TestCreateAndUpdateNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Hello", "first")
	if n.ID == "" || n.Checksum == "" {
		t.Fatalf("note = %+v, want id and checksum", n)
	}

	up, err := db.UpdateNote(ctx, n.ID, "Hello again", "second")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if up.Title != "Hello again" || up.Content != "second" {
		t.Errorf("updated = %+v", up)
	}
	if up.Checksum == n.Checksum {
		t.Error("checksum should change with content")
	}

	renamed, err := db.UpdateNote(ctx, n.ID, "Renamed", "second")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if renamed.Checksum == up.Checksum {
		t.Error("checksum should change with title")
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.UpdateNote(context.Background(), "missing", "t", "c")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBlocksRoundTripOrderedByPosition(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Doc", "")

	inputs := []BlockInput{
		{Type: models.BlockCode, Content: "fmt.Println()", Meta: models.CodeMeta{Language: "go"}, Position: 2},
		{Type: models.BlockHeading, Content: "Title", Meta: models.HeadingMeta{Level: 1}, Position: 0},
		{Type: models.BlockText, Content: "body", Position: 1},
	}
	for _, in := range inputs {
		if _, err := db.CreateBlock(ctx, n.ID, in); err != nil {
			t.Fatalf("CreateBlock: %v", err)
		}
	}

	blocks, err := db.ListBlocks(ctx, n.ID)
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("len = %d, want 3", len(blocks))
	}
	want := []models.BlockType{models.BlockHeading, models.BlockText, models.BlockCode}
	for i, b := range blocks {
		if b.Type != want[i] {
			t.Errorf("blocks[%d].Type = %s, want %s", i, b.Type, want[i])
		}
		if b.ID.IsProvisional() {
			t.Errorf("blocks[%d] has provisional id %s", i, b.ID)
		}
	}
	if hm, ok := blocks[0].Meta.(models.HeadingMeta); !ok || hm.Level != 1 {
		t.Errorf("heading meta = %#v", blocks[0].Meta)
	}
	if cm, ok := blocks[2].Meta.(models.CodeMeta); !ok || cm.Language != "go" {
		t.Errorf("code meta = %#v", blocks[2].Meta)
	}
}

func TestListBlocks_UnknownNoteIsEmpty(t *testing.T) {
	db := testDB(t)
	blocks, err := db.ListBlocks(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("len = %d, want 0", len(blocks))
	}
}

func TestCreateBlock_Validation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Doc", "")

	if _, err := db.CreateBlock(ctx, n.ID, BlockInput{Type: "table"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown type err = %v", err)
	}
	if _, err := db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockText, Meta: models.HeadingMeta{Level: 1}}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("mismatched meta err = %v", err)
	}
	if _, err := db.CreateBlock(ctx, "missing", BlockInput{Type: models.BlockText}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing note err = %v", err)
	}
}

func TestUpdateAndDeleteBlock(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Doc", "")
	b, err := db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockText, Content: "a"})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}

	up, err := db.UpdateBlock(ctx, b.ID.Value(), BlockInput{Type: models.BlockQuote, Content: "q", Meta: models.QuoteMeta{Author: "Ada"}, Position: 4})
	if err != nil {
		t.Fatalf("UpdateBlock: %v", err)
	}
	if up.Type != models.BlockQuote || up.Position != 4 || up.ID != b.ID {
		t.Errorf("updated = %+v", up)
	}

	if err := db.DeleteBlock(ctx, b.ID.Value()); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if err := db.DeleteBlock(ctx, b.ID.Value()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := db.UpdateBlock(ctx, b.ID.Value(), BlockInput{Type: models.BlockText}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNoteCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Doc", "")
	b, _ := db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockText})

	if err := db.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNote err = %v", err)
	}
	if _, err := db.GetBlock(ctx, b.ID.Value()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetBlock err = %v", err)
	}
	if err := db.DeleteNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second DeleteNote err = %v", err)
	}
}

func TestListNotesPaging(t *testing.T) {
	db := testDB(t)
	for _, title := range []string{"a", "b", "c"} {
		mustNote(t, db, title, "")
	}
	page, total, err := db.ListNotes(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("total = %d, len = %d", total, len(page))
	}
}

func TestImageSources(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Doc", "")
	_, _ = db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockImage, Content: "/attachments/a.png"})
	_, _ = db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockImage, Content: ""})
	_, _ = db.CreateBlock(ctx, n.ID, BlockInput{Type: models.BlockText, Content: "/attachments/b.png"})

	srcs, err := db.ImageSources(ctx)
	if err != nil {
		t.Fatalf("ImageSources: %v", err)
	}
	if len(srcs) != 1 || srcs[0] != "/attachments/a.png" {
		t.Errorf("sources = %v", srcs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	n := mustNote(t, db, "Search Me", "uniqueword appears here")

	results, err := db.Search(context.Background(), "uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != n.ID {
		t.Errorf("search results = %+v, want 1 hit for %s", results, n.ID)
	}
}
