package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/blocknote/internal/apperr"
)

// FS implements Provider backed by a flat local directory.
type FS struct {
	root string // absolute path to the attachments directory
}

// NewFS creates an FS provider rooted at dir, creating it when missing.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("attachments: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("attachments: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("attachments: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("attachments: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute directory the provider writes to.
func (f *FS) Root() string { return f.root }

// safePath returns the absolute path of name under root.
func (f *FS) safePath(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, name)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes attachments root: %s", apperr.ErrInvalid, name)
	}
	return abs, nil
}

// Put atomically writes r: tmp file → fsync → rename.
func (f *FS) Put(_ context.Context, name string, r io.Reader) (int64, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(f.root, ".blocknote-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("attachments: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("attachments: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("attachments: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("attachments: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return 0, fmt.Errorf("attachments: rename: %w", err)
	}
	success = true
	return n, nil
}

// Open returns the file for name.
func (f *FS) Open(_ context.Context, name string) (io.ReadCloser, Object, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, Object{}, err
	}
	file, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Object{}, apperr.ErrNotFound
	}
	if err != nil {
		return nil, Object{}, fmt.Errorf("attachments: open %s: %w", name, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, Object{}, fmt.Errorf("attachments: stat %s: %w", name, err)
	}
	return file, Object{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List returns every regular file in root, skipping temp files.
func (f *FS) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("attachments: list: %w", err)
	}
	var out []Object
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Object{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// Delete removes name.
func (f *FS) Delete(_ context.Context, name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("attachments: delete %s: %w", name, err)
	}
	return nil
}
