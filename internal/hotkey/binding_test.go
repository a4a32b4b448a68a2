package hotkey

import (
	"testing"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ctrl+Shift+S", "Ctrl+Shift+S"},
		{"shift+ctrl+s", "Ctrl+Shift+S"},
		{"Control + Shift + 1", "Ctrl+Shift+1"},
		{"Cmd+Option+F5", "Alt+Super+F5"},
		{"Ctrl+Ctrl+E", "Ctrl+E"},
	}
	for _, tt := range tests {
		chord, err := ParseChord(tt.in)
		if err != nil {
			t.Fatalf("ParseChord(%q) error = %v", tt.in, err)
		}
		if chord.String() != tt.want {
			t.Errorf("ParseChord(%q) = %q, want %q", tt.in, chord.String(), tt.want)
		}
	}
}

func TestParseChord_Invalid(t *testing.T) {
	for _, in := range []string{"", "S", "Hyper+S", "Ctrl+Shift+", "Ctrl+Enter", "Ctrl+F13"} {
		if _, err := ParseChord(in); err == nil {
			t.Errorf("ParseChord(%q) expected error", in)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(DefaultBindings()); err != nil {
		t.Fatalf("Validate(defaults) error = %v", err)
	}

	dup := []Binding{
		{Keys: "Ctrl+Shift+S", Command: dispatch.TagStartTime},
		{Keys: "shift+ctrl+S", Command: dispatch.TagEndTime},
	}
	if err := Validate(dup); err == nil {
		t.Fatal("expected duplicate chord error")
	}

	unknown := []Binding{{Keys: "Ctrl+Shift+S", Command: "self-destruct"}}
	if err := Validate(unknown); err == nil {
		t.Fatal("expected unknown command error")
	}
}
