package inline

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize_Bold(t *testing.T) {
	got := Tokenize("a **b** c")
	want := []Segment{
		{Text: "a ", Raw: "a ", Kind: Normal},
		{Text: "b", Raw: "**b**", Kind: Bold},
		{Text: " c", Raw: " c", Kind: Normal},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %+v\nwant %+v", got, want)
	}
}

func TestTokenize_NoMarkers(t *testing.T) {
	got := Tokenize("plain words")
	if len(got) != 1 || got[0].Kind != Normal || got[0].Text != "plain words" {
		t.Errorf("Tokenize = %+v", got)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %+v, want empty", got)
	}
}

func TestTokenize_AllKinds(t *testing.T) {
	got := Tokenize("**b** *i* ~~s~~ `c`")
	var kinds []Kind
	for _, s := range got {
		if s.Kind != Normal {
			kinds = append(kinds, s.Kind)
		}
	}
	want := []Kind{Bold, Italic, Strikethrough, Code}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
}

func TestTokenize_ClaimedSpansAreInert(t *testing.T) {
	// The bold rule claims the span first, so the italic rule never sees it.
	got := Tokenize("**a *b* c**")
	if len(got) != 1 || got[0].Kind != Bold || got[0].Text != "a *b* c" {
		t.Errorf("Tokenize = %+v", got)
	}

	// Code markers inside italics are left as literal text.
	got = Tokenize("*x `y`*")
	if len(got) != 1 || got[0].Kind != Italic || got[0].Text != "x `y`" {
		t.Errorf("Tokenize = %+v", got)
	}
}

func TestTokenize_NonGreedy(t *testing.T) {
	got := Tokenize("**a** and **b**")
	if len(got) != 3 || got[0].Text != "a" || got[2].Text != "b" || got[1].Text != " and " {
		t.Errorf("Tokenize = %+v", got)
	}
}

func TestTokenize_RawRoundTrip(t *testing.T) {
	inputs := []string{
		"a **b** c",
		"*one* and *two*",
		"~~gone~~ `code` **bold** *it*",
		"unbalanced **marker",
		"**nested *italic* inside**",
		"line one\n**line** two",
	}
	for _, in := range inputs {
		var b strings.Builder
		for seg := range Segments(in) {
			b.WriteString(seg.Raw)
		}
		if b.String() != in {
			t.Errorf("round trip of %q = %q", in, b.String())
		}
	}
}

func TestSegments_Restartable(t *testing.T) {
	seq := Segments("a **b** c")
	n1, n2 := 0, 0
	for range seq {
		n1++
	}
	for range seq {
		n2++
	}
	if n1 != 3 || n1 != n2 {
		t.Errorf("iterations = %d, %d", n1, n2)
	}
}

func TestPlain(t *testing.T) {
	if got := Plain("a **b** ~~c~~"); got != "a b c" {
		t.Errorf("Plain = %q", got)
	}
}
