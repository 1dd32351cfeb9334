//go:build sqlite_fts5

package storage

import (
	"context"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	n := mustNote(t, db, "FTS Note", "Blocks provide powerful full-text search capabilities.")

	results, err := db.Search(context.Background(), "powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != n.ID {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "", "vanishing content")
	_ = db.DeleteNote(ctx, n.ID)

	results, _ := db.Search(ctx, "vanishing", 10)
	for _, r := range results {
		if r.ID == n.ID {
			t.Error("deleted note still in FTS index")
		}
	}
}

func TestFTS5_UpdateReplacesContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := mustNote(t, db, "Old", "original text")
	if _, err := db.UpdateNote(ctx, n.ID, "New", "replacement text"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}

	results, _ := db.Search(ctx, "original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(ctx, "replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
