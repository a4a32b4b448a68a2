// Package settings holds the process-wide preferences: clip basename,
// output folder and dark mode. They are loaded once at startup and each
// change is written through before it becomes visible.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/clipmarker/clipmarker-agent/internal/export"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

const (
	KeyDarkMode     = "isDarkMode"
	KeyBasename     = "basename"
	KeyOutputFolder = "outputFolder"

	DefaultBasename = "default_basename"

	maxBasenameLen = 120
)

var ErrEmptyBasename = errors.New("basename is empty after removing unsupported characters")

// Repository persists string values by key.
type Repository interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Values is a copy of all settings.
type Values struct {
	Basename     string `json:"basename"`
	OutputFolder string `json:"output_folder"`
	DarkMode     bool   `json:"dark_mode"`
}

type Store struct {
	repo   Repository
	logger *slog.Logger

	// update serializes Update calls; mu guards values.
	update sync.Mutex
	mu     sync.RWMutex
	values Values
}

func NewStore(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		repo:   repo,
		logger: logging.WithComponent(logger, "settings"),
		values: Values{Basename: DefaultBasename},
	}
}

// Load reads persisted values. Missing keys keep their defaults; an
// unreadable dark-mode value is treated as false.
func (s *Store) Load(ctx context.Context) error {
	v := Values{Basename: DefaultBasename}

	basename, err := s.repo.GetConfig(ctx, KeyBasename)
	if err != nil {
		return fmt.Errorf("load %s: %w", KeyBasename, err)
	}
	if basename != "" {
		v.Basename = basename
	}

	if v.OutputFolder, err = s.repo.GetConfig(ctx, KeyOutputFolder); err != nil {
		return fmt.Errorf("load %s: %w", KeyOutputFolder, err)
	}

	dark, err := s.repo.GetConfig(ctx, KeyDarkMode)
	if err != nil {
		return fmt.Errorf("load %s: %w", KeyDarkMode, err)
	}
	if dark != "" {
		if v.DarkMode, err = strconv.ParseBool(dark); err != nil {
			s.logger.Warn("ignoring invalid dark mode value", "value", dark)
			v.DarkMode = false
		}
	}

	s.mu.Lock()
	s.values = v
	s.mu.Unlock()

	s.logger.Debug("settings loaded", "basename", v.Basename,
		"output_folder", logging.SanitizePath(v.OutputFolder), "dark_mode", v.DarkMode)
	return nil
}

func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *Store) Basename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Basename
}

func (s *Store) OutputFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.OutputFolder
}

func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.DarkMode
}

// SetBasename sanitizes and stores name, returning the stored value.
func (s *Store) SetBasename(ctx context.Context, name string) (string, error) {
	v, err := s.Update(ctx, Patch{Basename: &name})
	return v.Basename, err
}

// SetOutputFolder stores an existing directory. An empty dir clears the
// setting.
func (s *Store) SetOutputFolder(ctx context.Context, dir string) (string, error) {
	v, err := s.Update(ctx, Patch{OutputFolder: &dir})
	return v.OutputFolder, err
}

// Patch names the settings to change. Nil fields are left alone.
type Patch struct {
	Basename     *string
	OutputFolder *string
	DarkMode     *bool
}

// Update validates every field of p before writing any of them, so an
// invalid field leaves all settings as they were.
func (s *Store) Update(ctx context.Context, p Patch) (Values, error) {
	s.update.Lock()
	defer s.update.Unlock()

	next := s.Values()
	var writes [][2]string

	if p.Basename != nil {
		clean, err := cleanBasename(*p.Basename)
		if err != nil {
			return Values{}, err
		}
		next.Basename = clean
		writes = append(writes, [2]string{KeyBasename, clean})
	}
	if p.OutputFolder != nil {
		clean, err := cleanOutputFolder(*p.OutputFolder)
		if err != nil {
			return Values{}, err
		}
		next.OutputFolder = clean
		writes = append(writes, [2]string{KeyOutputFolder, clean})
	}
	if p.DarkMode != nil {
		next.DarkMode = *p.DarkMode
		writes = append(writes, [2]string{KeyDarkMode, strconv.FormatBool(*p.DarkMode)})
	}

	for _, kv := range writes {
		if err := s.save(ctx, kv[0], kv[1]); err != nil {
			return Values{}, err
		}
	}

	s.mu.Lock()
	s.values = next
	s.mu.Unlock()
	return next, nil
}

func (s *Store) save(ctx context.Context, key, value string) error {
	if err := s.repo.SetConfig(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func cleanBasename(name string) (string, error) {
	clean := export.SanitizeName(name, maxBasenameLen)
	if clean == "" {
		return "", ErrEmptyBasename
	}
	return clean, nil
}

func cleanOutputFolder(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid output folder: %w", err)
	}
	if err := export.ValidateOutputDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	_, err := s.Update(ctx, Patch{DarkMode: &on})
	return err
}

// ToggleDarkMode flips dark mode and returns the new value.
func (s *Store) ToggleDarkMode(ctx context.Context) (bool, error) {
	on := !s.DarkMode()
	if err := s.SetDarkMode(ctx, on); err != nil {
		return !on, err
	}
	return on, nil
}
