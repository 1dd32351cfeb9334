// Package checksum computes the version tag of a stored note. It is exposed
// as the note's ETag and compared against If-Match on update.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Note returns the hex-encoded SHA-256 digest of a note's title and
// derived content. A change to either yields a different tag.
func Note(title, content string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
