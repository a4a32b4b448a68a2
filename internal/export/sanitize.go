// Package export renders the clip ledger to edit lists and cleans names and
// folders that end up on disk.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// FolderError explains why a folder cannot receive exports.
type FolderError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *FolderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("output folder %s: %s: %v", e.Dir, e.Reason, e.Err)
	}
	return fmt.Sprintf("output folder %s: %s", e.Dir, e.Reason)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// SanitizeName makes s safe to use inside a clip or file name. Control
// characters are dropped, path separators and other unsafe runes become
// '_', and the result is trimmed and cut to maxLen runes (no limit when
// maxLen <= 0).
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case nameRune(r):
			return r
		default:
			return '_'
		}
	}, s)

	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func nameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// ValidateOutputDir checks that dir is a clean path to an existing
// directory. Failures are *FolderError.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return &FolderError{Dir: `""`, Reason: "no folder selected"}
	}
	if filepath.Clean(dir) != dir {
		return &FolderError{Dir: dir, Reason: "path is not clean"}
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return &FolderError{Dir: dir, Reason: "path leaves its root"}
		}
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &FolderError{Dir: dir, Reason: "does not exist"}
	case err != nil:
		return &FolderError{Dir: dir, Reason: "cannot be read", Err: err}
	case !info.IsDir():
		return &FolderError{Dir: dir, Reason: "is not a directory"}
	}
	return nil
}
