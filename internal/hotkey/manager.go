package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

// Registration is one live OS shortcut.
type Registration interface {
	Unregister() error
}

// Registrar installs a shortcut with the OS. onPress runs on a goroutine
// owned by the registrar and must return quickly.
type Registrar interface {
	Register(chord Chord, onPress func()) (Registration, error)
}

// Submitter accepts commands without blocking.
type Submitter interface {
	Submit(tag dispatch.Tag, origin dispatch.Origin) (int64, <-chan dispatch.Result, error)
}

// RegistrationError reports one shortcut the OS refused.
type RegistrationError struct {
	Keys    string
	Command dispatch.Tag
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s (%s): %v", e.Keys, e.Command, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Manager owns the registered shortcut set.
type Manager struct {
	registrar Registrar
	submitter Submitter
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]Registration
}

func NewManager(registrar Registrar, submitter Submitter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		registrar: registrar,
		submitter: submitter,
		logger:    logging.WithComponent(logger, "hotkey"),
		active:    make(map[string]Registration),
	}
}

// RegisterAll replaces the current set with bindings. A key the OS refuses
// is reported in the returned slice and the rest are still registered.
func (m *Manager) RegisterAll(bindings []Binding) []error {
	if err := m.UnregisterAll(); err != nil {
		m.logger.Warn("failed to clear previous hotkeys", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var failed []error
	for _, b := range bindings {
		chord, err := ParseChord(b.Keys)
		if err != nil {
			failed = append(failed, &RegistrationError{Keys: b.Keys, Command: b.Command, Err: err})
			m.logger.Warn("hotkey rejected", "keys", b.Keys, "command", b.Command, "error", err)
			continue
		}

		reg, err := m.registrar.Register(chord, m.onPress(b))
		if err != nil {
			failed = append(failed, &RegistrationError{Keys: b.Keys, Command: b.Command, Err: err})
			m.logger.Warn("hotkey registration failed", "keys", chord.String(), "command", b.Command, "error", err)
			continue
		}
		m.active[chord.String()] = reg
		m.logger.Info("hotkey registered", "keys", chord.String(), "command", b.Command)
	}
	return failed
}

// UnregisterAll removes every registered shortcut.
func (m *Manager) UnregisterAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for keys, reg := range m.active {
		if err := reg.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %w", keys, err))
		}
		delete(m.active, keys)
	}
	return errors.Join(errs...)
}

// Active returns the number of registered shortcuts.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) onPress(b Binding) func() {
	return func() {
		seq, _, err := m.submitter.Submit(b.Command, dispatch.OriginHotkey)
		if err != nil {
			m.logger.Warn("hotkey command dropped", "keys", b.Keys, "command", b.Command, "error", err)
			return
		}
		m.logger.Debug("hotkey pressed", "keys", b.Keys, "command", b.Command, "seq", seq)
	}
}
