// Package storage persists generated scene images onto the local filesystem.
// One flat directory holds one file per scene number; the directory listing is
// the complete persisted state.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Entry describes one saved image file.
type Entry struct {
	Filename    string
	FullPath    string
	SceneNumber int
}

// ImageStore writes scene images under a single base directory with
// deterministic, zero-padded filenames. Writes are keyed by scene number with
// last-writer-wins semantics.
type ImageStore struct {
	dir string
	ext string
}

var sceneDigits = regexp.MustCompile(`\d+`)

// NewImageStore initializes the store rooted at dir, creating it if needed.
// format is the image file extension without the dot (e.g. "png").
func NewImageStore(dir, format string) (*ImageStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure output directory: %w", err)
	}
	ext := strings.TrimPrefix(strings.TrimSpace(format), ".")
	if ext == "" {
		ext = "png"
	}
	return &ImageStore{dir: dir, ext: ext}, nil
}

// Dir returns the base output directory.
func (s *ImageStore) Dir() string { return s.dir }

// Filename returns the deterministic name for a scene number.
func (s *ImageStore) Filename(sceneNumber int) string {
	return fmt.Sprintf("scene_%02d.%s", sceneNumber, s.ext)
}

// Save persists image bytes for the given scene, overwriting any prior file
// for that scene number, and returns the filename.
func (s *ImageStore) Save(ctx context.Context, sceneNumber int, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sceneNumber <= 0 {
		return "", fmt.Errorf("storage: invalid scene number %d", sceneNumber)
	}
	if len(data) == 0 {
		return "", errors.New("storage: refusing to save empty image")
	}
	name := s.Filename(sceneNumber)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write image: %w", err)
	}
	return name, nil
}

// Discard removes whatever file exists for the given scene number. It is used
// after a failed generation so a stale image from an earlier run cannot be
// mistaken for this run's output. A missing file is not an error.
func (s *ImageStore) Discard(sceneNumber int) {
	_ = os.Remove(filepath.Join(s.dir, s.Filename(sceneNumber)))
}

// List returns every saved image sorted by filename, deriving the scene
// number from the digits embedded in the name.
func (s *ImageStore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read output directory: %w", err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), "."+s.ext) {
			continue
		}
		sceneNumber := 0
		if m := sceneDigits.FindString(de.Name()); m != "" {
			sceneNumber, _ = strconv.Atoi(m)
		}
		entries = append(entries, Entry{
			Filename:    de.Name(),
			FullPath:    filepath.Join(s.dir, de.Name()),
			SceneNumber: sceneNumber,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

// Resolve maps a client-supplied filename onto a path inside the store,
// rejecting anything that would escape the base directory.
func (s *ImageStore) Resolve(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", errors.New("storage: invalid filename")
	}
	full := filepath.Join(s.dir, filename)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("storage: %s: %w", filename, os.ErrNotExist)
	}
	return full, nil
}
