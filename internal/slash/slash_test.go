package slash

import (
	"testing"

	"github.com/starford/blocknote/internal/models"
)

func types(cmds []Command) []models.BlockType {
	out := make([]models.BlockType, len(cmds))
	for i, c := range cmds {
		out[i] = c.Type
	}
	return out
}

func TestMatch_TypeSubstring(t *testing.T) {
	got := types(Match(Registry, "cod"))
	if len(got) != 1 || got[0] != models.BlockCode {
		t.Errorf("Match(cod) = %v, want [code]", got)
	}
}

func TestMatch_EmptyFilterReturnsRegistryOrder(t *testing.T) {
	got := types(Match(Registry, ""))
	if len(got) != len(models.BlockTypes) {
		t.Fatalf("len = %d", len(got))
	}
	for i, bt := range models.BlockTypes {
		if got[i] != bt {
			t.Errorf("got[%d] = %s, want %s", i, got[i], bt)
		}
	}
}

func TestMatch_CaseInsensitiveLabelAndKeyword(t *testing.T) {
	if got := types(Match(Registry, "HEAD")); len(got) != 1 || got[0] != models.BlockHeading {
		t.Errorf("Match(HEAD) = %v", got)
	}
	if got := types(Match(Registry, "url")); len(got) != 1 || got[0] != models.BlockLink {
		t.Errorf("Match(url) = %v", got)
	}
	if got := Match(Registry, "zzz"); len(got) != 0 {
		t.Errorf("Match(zzz) = %v, want none", got)
	}
}

func TestMenu_CursorWraps(t *testing.T) {
	m := NewMenu(Registry)
	m.Prev()
	if m.Cursor() != len(Registry)-1 {
		t.Errorf("cursor after Prev = %d", m.Cursor())
	}
	m.Next()
	if m.Cursor() != 0 {
		t.Errorf("cursor after Next = %d", m.Cursor())
	}
	m.Next()
	if bt, ok := m.Confirm(); !ok || bt != models.BlockHeading {
		t.Errorf("Confirm = %s, %v", bt, ok)
	}
}

func TestMenu_FilterChangeResetsCursor(t *testing.T) {
	m := NewMenu(Registry)
	m.Next()
	m.Next()
	m.SetFilter("")
	if m.Cursor() != 2 {
		t.Errorf("unchanged filter moved cursor to %d", m.Cursor())
	}
	m.SetFilter("t")
	if m.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 after filter change", m.Cursor())
	}
}

func TestMenu_ConfirmEmpty(t *testing.T) {
	m := NewMenu(Registry)
	m.SetFilter("nothing-matches")
	m.Next()
	if _, ok := m.Confirm(); ok {
		t.Error("Confirm on empty result should report no selection")
	}
}
