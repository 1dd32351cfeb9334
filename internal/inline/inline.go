// Package inline splits block text into inline markdown segments.
package inline

import (
	"iter"
	"regexp"
	"strings"
)

// Kind tags a segment with its inline style.
type Kind string

const (
	Normal        Kind = "normal"
	Bold          Kind = "bold"
	Italic        Kind = "italic"
	Strikethrough Kind = "strikethrough"
	Code          Kind = "code"
)

// Segment is a run of text with one style. Text is what gets displayed;
// Raw is the exact source slice, markers included.
type Segment struct {
	Text string `json:"text"`
	Raw  string `json:"raw"`
	Kind Kind   `json:"kind"`
}

type rule struct {
	re   *regexp.Regexp
	kind Kind
}

// Rules run in this order; each only sees segments still tagged Normal.
var rules = []rule{
	{regexp.MustCompile(`\*\*(.+?)\*\*`), Bold},
	{regexp.MustCompile(`\*(.+?)\*`), Italic},
	{regexp.MustCompile(`~~(.+?)~~`), Strikethrough},
	{regexp.MustCompile("`(.+?)`"), Code},
}

// Tokenize returns the segments of s in order. An empty string yields none.
func Tokenize(s string) []Segment {
	if s == "" {
		return nil
	}
	segs := []Segment{{Text: s, Raw: s, Kind: Normal}}
	for _, r := range rules {
		next := make([]Segment, 0, len(segs))
		for _, seg := range segs {
			if seg.Kind != Normal {
				next = append(next, seg)
				continue
			}
			next = append(next, r.split(seg.Text)...)
		}
		segs = next
	}
	return segs
}

// Segments returns a restartable iterator over the segments of s.
func Segments(s string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		for _, seg := range Tokenize(s) {
			if !yield(seg) {
				return
			}
		}
	}
}

// Plain strips all recognized markers from s.
func Plain(s string) string {
	var b strings.Builder
	for seg := range Segments(s) {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func (r rule) split(str string) []Segment {
	matches := r.re.FindAllStringSubmatchIndex(str, -1)
	if matches == nil {
		return []Segment{{Text: str, Raw: str, Kind: Normal}}
	}
	var out []Segment
	last := 0
	for _, m := range matches {
		if m[0] > last {
			lit := str[last:m[0]]
			out = append(out, Segment{Text: lit, Raw: lit, Kind: Normal})
		}
		out = append(out, Segment{Text: str[m[2]:m[3]], Raw: str[m[0]:m[1]], Kind: r.kind})
		last = m[1]
	}
	if last < len(str) {
		lit := str[last:]
		out = append(out, Segment{Text: lit, Raw: lit, Kind: Normal})
	}
	return out
}
