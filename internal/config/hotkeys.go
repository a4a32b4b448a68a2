package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clipmarker/clipmarker-agent/internal/hotkey"
)

// HotkeyFile is the structure of hotkeys.yaml.
type HotkeyFile struct {
	Bindings []hotkey.Binding `yaml:"bindings"`
}

// ReadHotkeys reads the binding file at path. A missing file yields the
// default bindings; malformed YAML or an invalid binding is an error.
func ReadHotkeys(path string) ([]hotkey.Binding, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return hotkey.DefaultBindings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading hotkeys: %w", err)
	}

	var f HotkeyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing hotkeys: %w", err)
	}
	if len(f.Bindings) == 0 {
		return nil, fmt.Errorf("parsing hotkeys: %s has no bindings", path)
	}
	if err := hotkey.Validate(f.Bindings); err != nil {
		return nil, fmt.Errorf("invalid hotkeys: %w", err)
	}
	return f.Bindings, nil
}

// WriteHotkeys writes bindings to path.
func WriteHotkeys(path string, bindings []hotkey.Binding) error {
	data, err := yaml.Marshal(HotkeyFile{Bindings: bindings})
	if err != nil {
		return fmt.Errorf("marshalling hotkeys: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hotkeys: %w", err)
	}
	return nil
}
