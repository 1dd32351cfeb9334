package attachments

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/blocknote/internal/apperr"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Saved is the result of storing an uploaded image.
type Saved struct {
	Name     string `json:"filename"`
	Original string `json:"original"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// SaveImage validates data as an image and stores it under a fresh,
// collision-free name that keeps the original extension.
// mime may be empty; it is used when the original name has no extension.
func SaveImage(ctx context.Context, p Provider, original, mime string, data []byte) (Saved, error) {
	if len(data) == 0 {
		return Saved{}, fmt.Errorf("%w: empty upload", apperr.ErrInvalid)
	}
	if len(data) > MaxUploadBytes {
		return Saved{}, fmt.Errorf("%w: file too large: %d bytes (max %d)", apperr.ErrInvalid, len(data), MaxUploadBytes)
	}

	ext := strings.ToLower(filepath.Ext(SanitizeFilename(original)))
	if ext == "" {
		ext = mimeToExt[strings.Split(mime, ";")[0]]
	}
	if !allowedExtensions[ext] {
		return Saved{}, fmt.Errorf("%w: unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg)", apperr.ErrInvalid, ext)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return Saved{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	name := uuid.NewString() + ext
	n, err := p.Put(ctx, name, bytes.NewReader(data))
	if err != nil {
		return Saved{}, err
	}
	return Saved{Name: name, Original: original, Size: n, URL: URL(name)}, nil
}

// ExtForMIME returns the image extension registered for a MIME type.
func ExtForMIME(mime string) string {
	return mimeToExt[strings.Split(mime, ";")[0]]
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.NewString()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := ExtForMIME(detected)

	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
