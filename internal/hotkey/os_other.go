//go:build !darwin && !linux && !windows

package hotkey

import "errors"

// OSRegistrar has no shortcut support on this platform.
type OSRegistrar struct{}

func (OSRegistrar) Register(chord Chord, onPress func()) (Registration, error) {
	return nil, errors.New("global hotkeys are not supported on this platform")
}
