package editor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/blocknote/internal/apperr"
)

// NormalizeLink trims raw, adds an https scheme when none is given and
// returns the URL with its host, which link blocks use as their title.
func NormalizeLink(raw string) (string, string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", "", fmt.Errorf("%w: empty link", apperr.ErrInvalid)
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("%w: invalid link %q", apperr.ErrInvalid, raw)
	}
	return u, parsed.Hostname(), nil
}
