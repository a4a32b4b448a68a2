package shell

import (
	"bytes"
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(m nameModel, s string) nameModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(nameModel)
}

func TestNameModel_Enter(t *testing.T) {
	m := typeInto(newNameModel(), "  intro ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(nameModel)
	if !m.done || m.cancelled {
		t.Fatalf("done = %v, cancelled = %v", m.done, m.cancelled)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.Value() != "intro" {
		t.Fatalf("Value() = %q, want intro", m.Value())
	}
}

func TestNameModel_Esc(t *testing.T) {
	m := typeInto(newNameModel(), "intro")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(nameModel).cancelled {
		t.Fatal("esc did not cancel")
	}
}

func TestNameModel_View(t *testing.T) {
	m := newNameModel()
	if m.View() == "" {
		t.Fatal("empty view while prompting")
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if next.(nameModel).View() != "" {
		t.Fatal("view not cleared after submit")
	}
}

func TestPromptName_NoTTY(t *testing.T) {
	p := NewTerminalPrompter(nil)
	p.isTTY = func() bool { return false }

	name, err := p.PromptName(context.Background())
	if err != nil || name != "" {
		t.Fatalf("PromptName() = %q, %v", name, err)
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(nil)
	b.out = &buf

	if err := b.Foreground(); err != nil {
		t.Fatalf("Foreground() error = %v", err)
	}
	if buf.String() != "\a" {
		t.Fatalf("wrote %q", buf.String())
	}
}
