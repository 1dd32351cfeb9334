// Package testutil provides shared test helpers for databases and attachment stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *storage.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "blocknote-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := storage.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAttachments creates a temporary directory backed attachments.Provider.
func TestAttachments(t *testing.T) (string, *attachments.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := attachments.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
