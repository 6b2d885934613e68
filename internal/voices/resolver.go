// Package voices resolves caller-supplied voice names to reference audio
// files on disk.
package voices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVoice is the reference sample used when the caller names no voice.
const DefaultVoice = "default"

// referenceExtensions are the accepted reference sample formats, in
// preference order.
var referenceExtensions = []string{".wav", ".mp3", ".flac"}

// Static errors.
var (
	ErrVoiceNotFound    = errors.New("reference voice not found")
	ErrInvalidVoiceName = errors.New("invalid voice name")
)

// Resolver maps voice names to reference audio paths under a single
// configured directory.
type Resolver struct {
	baseDir string
}

// NewResolver creates a resolver rooted at baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{baseDir: baseDir}
}

// Resolve returns the on-disk path of the reference sample for name. The
// name must be a bare identifier; path separators and traversal sequences
// are rejected so callers cannot escape the voices directory.
func (r *Resolver) Resolve(name string) (string, error) {
	if name == "" {
		name = DefaultVoice
	}

	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidVoiceName, name)
	}

	for _, extension := range referenceExtensions {
		candidate := filepath.Join(r.baseDir, name+extension)

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %q in %s", ErrVoiceNotFound, name, r.baseDir)
}

// List returns the names of all available reference voices, without
// extensions, sorted by the directory order of the filesystem.
func (r *Resolver) List() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices directory: %w", err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		extension := filepath.Ext(entry.Name())
		for _, accepted := range referenceExtensions {
			if extension == accepted {
				names = append(names, strings.TrimSuffix(entry.Name(), extension))

				break
			}
		}
	}

	return names, nil
}
