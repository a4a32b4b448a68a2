// Package hotkey registers OS-level global shortcuts and turns each press
// into a dispatcher command. Presses never run session code on the OS
// callback goroutine.
package hotkey

import (
	"fmt"
	"slices"
	"strings"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
)

// Binding maps a key chord to a command tag.
type Binding struct {
	Keys    string       `yaml:"keys"`
	Command dispatch.Tag `yaml:"command"`
}

// Chord is a parsed key combination. Modifiers are lower case and sorted.
type Chord struct {
	Modifiers []string
	Key       string
}

func (c Chord) String() string {
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, m := range c.Modifiers {
		parts = append(parts, strings.ToUpper(m[:1])+m[1:])
	}
	return strings.Join(append(parts, c.Key), "+")
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "super",
	"command": "super",
	"super":   "super",
	"win":     "super",
}

// DefaultBindings are the five marking shortcuts.
func DefaultBindings() []Binding {
	return []Binding{
		{Keys: "Ctrl+Shift+S", Command: dispatch.TagStartTime},
		{Keys: "Ctrl+Shift+D", Command: dispatch.TagEndTime},
		{Keys: "Ctrl+Shift+N", Command: dispatch.TagNameClip},
		{Keys: "Ctrl+Shift+B", Command: dispatch.TagQuickAdd},
		{Keys: "Ctrl+Shift+E", Command: dispatch.TagExportClips},
	}
}

// ParseChord parses "Ctrl+Shift+S" style text. At least one modifier is
// required; the key is a letter, a digit or F1-F12.
func ParseChord(s string) (Chord, error) {
	fields := strings.Split(s, "+")
	if len(fields) < 2 {
		return Chord{}, fmt.Errorf("hotkey %q: need at least one modifier and a key", s)
	}

	var chord Chord
	for _, f := range fields[:len(fields)-1] {
		mod, ok := modifierAliases[strings.ToLower(strings.TrimSpace(f))]
		if !ok {
			return Chord{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, f)
		}
		if !slices.Contains(chord.Modifiers, mod) {
			chord.Modifiers = append(chord.Modifiers, mod)
		}
	}
	slices.Sort(chord.Modifiers)

	key := strings.ToUpper(strings.TrimSpace(fields[len(fields)-1]))
	if !validKey(key) {
		return Chord{}, fmt.Errorf("hotkey %q: unsupported key %q", s, key)
	}
	chord.Key = key
	return chord, nil
}

func validKey(key string) bool {
	if len(key) == 1 {
		c := key[0]
		return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	}
	return slices.Contains(functionKeys, key)
}

var functionKeys = []string{"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12"}

// Validate checks every binding and rejects duplicate chords.
func Validate(bindings []Binding) error {
	seen := make(map[string]dispatch.Tag, len(bindings))
	for _, b := range bindings {
		chord, err := ParseChord(b.Keys)
		if err != nil {
			return err
		}
		if _, err := dispatch.ParseTag(string(b.Command)); err != nil {
			return fmt.Errorf("hotkey %q: %w", b.Keys, err)
		}
		if prev, ok := seen[chord.String()]; ok {
			return fmt.Errorf("hotkey %q bound to both %s and %s", b.Keys, prev, b.Command)
		}
		seen[chord.String()] = b.Command
	}
	return nil
}
