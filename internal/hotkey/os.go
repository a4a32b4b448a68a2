//go:build darwin || linux || windows

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var keys = map[string]hotkey.Key{
	"A":   hotkey.KeyA,
	"B":   hotkey.KeyB,
	"C":   hotkey.KeyC,
	"D":   hotkey.KeyD,
	"E":   hotkey.KeyE,
	"F":   hotkey.KeyF,
	"G":   hotkey.KeyG,
	"H":   hotkey.KeyH,
	"I":   hotkey.KeyI,
	"J":   hotkey.KeyJ,
	"K":   hotkey.KeyK,
	"L":   hotkey.KeyL,
	"M":   hotkey.KeyM,
	"N":   hotkey.KeyN,
	"O":   hotkey.KeyO,
	"P":   hotkey.KeyP,
	"Q":   hotkey.KeyQ,
	"R":   hotkey.KeyR,
	"S":   hotkey.KeyS,
	"T":   hotkey.KeyT,
	"U":   hotkey.KeyU,
	"V":   hotkey.KeyV,
	"W":   hotkey.KeyW,
	"X":   hotkey.KeyX,
	"Y":   hotkey.KeyY,
	"Z":   hotkey.KeyZ,
	"0":   hotkey.Key0,
	"1":   hotkey.Key1,
	"2":   hotkey.Key2,
	"3":   hotkey.Key3,
	"4":   hotkey.Key4,
	"5":   hotkey.Key5,
	"6":   hotkey.Key6,
	"7":   hotkey.Key7,
	"8":   hotkey.Key8,
	"9":   hotkey.Key9,
	"F1":  hotkey.KeyF1,
	"F2":  hotkey.KeyF2,
	"F3":  hotkey.KeyF3,
	"F4":  hotkey.KeyF4,
	"F5":  hotkey.KeyF5,
	"F6":  hotkey.KeyF6,
	"F7":  hotkey.KeyF7,
	"F8":  hotkey.KeyF8,
	"F9":  hotkey.KeyF9,
	"F10": hotkey.KeyF10,
	"F11": hotkey.KeyF11,
	"F12": hotkey.KeyF12,
}

// OSRegistrar registers shortcuts with the desktop session.
type OSRegistrar struct{}

func (OSRegistrar) Register(chord Chord, onPress func()) (Registration, error) {
	mods := make([]hotkey.Modifier, 0, len(chord.Modifiers))
	for _, m := range chord.Modifiers {
		mod, ok := modifiers[m]
		if !ok {
			return nil, fmt.Errorf("modifier %q not supported on this platform", m)
		}
		mods = append(mods, mod)
	}
	key, ok := keys[chord.Key]
	if !ok {
		return nil, fmt.Errorf("key %q not supported", chord.Key)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, err
	}

	r := &osRegistration{hk: hk, stop: make(chan struct{})}
	go r.listen(onPress)
	return r, nil
}

type osRegistration struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
	once sync.Once
}

func (r *osRegistration) listen(onPress func()) {
	for {
		select {
		case <-r.stop:
			return
		case _, ok := <-r.hk.Keydown():
			if !ok {
				return
			}
			onPress()
		}
	}
}

func (r *osRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.stop)
		err = r.hk.Unregister()
	})
	return err
}
