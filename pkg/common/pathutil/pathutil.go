// Package pathutil keeps the files the CLI reads and writes under its data directory.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEscapesBase is returned for a name that resolves outside its base directory.
var ErrEscapesBase = errors.New("path escapes base directory")

// Join resolves name under base. Absolute names and names that climb out of
// base are rejected.
func Join(base, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrEscapesBase, name)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", base, err)
	}
	full := filepath.Join(absBase, name)
	rel, err := filepath.Rel(absBase, full)
	if err != nil || climbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrEscapesBase, name)
	}
	return full, nil
}

// CheckNoTraversal rejects paths that still contain a parent reference after cleaning.
func CheckNoTraversal(p string) error {
	if climbs(filepath.Clean(p)) {
		return fmt.Errorf("%w: %q", ErrEscapesBase, p)
	}
	return nil
}

func climbs(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
