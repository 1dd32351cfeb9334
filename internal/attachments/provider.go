// Package attachments stores the image files referenced by image blocks.
package attachments

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/blocknote/internal/apperr"
)

// URLPrefix is the public path attachments are served under.
const URLPrefix = "/attachments/"

// Object describes a stored attachment.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider abstracts the attachment backend (local directory or S3 bucket).
type Provider interface {
	// Put stores r under name, replacing any existing object, and returns the bytes written.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open returns a reader for name. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, Object, error)
	// List returns every stored object.
	List(ctx context.Context) ([]Object, error)
	// Delete removes name.
	Delete(ctx context.Context, name string) error
}

// URL returns the public URL for an attachment name.
func URL(name string) string {
	return URLPrefix + name
}

// NameFromURL extracts the attachment name from a URL produced by URL.
// It reports false for anything that does not point at an attachment.
func NameFromURL(u string) (string, bool) {
	i := strings.Index(u, URLPrefix)
	if i < 0 {
		return "", false
	}
	name := u[i+len(URLPrefix):]
	if j := strings.IndexAny(name, "?#"); j >= 0 {
		name = name[:j]
	}
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// validName accepts plain file names only: no separators, no traversal,
// no hidden files.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is required", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(name)
	if cleaned != name || cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") || strings.ContainsAny(cleaned, `/\`) {
		return fmt.Errorf("%w: invalid filename: %s", apperr.ErrInvalid, name)
	}
	return nil
}
