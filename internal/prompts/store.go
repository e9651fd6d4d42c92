package prompts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// validKeyPattern matches valid prompt keys (alphanumeric with dots, underscores).
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

const overrideExt = ".tmpl"

// Store reads and writes prompt overrides as <dir>/<key>.tmpl files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a new override store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the override directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if !validKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid prompt key: %s", key)
	}
	return filepath.Join(s.dir, key+overrideExt), nil
}

// Get returns the override for key, or nil if none exists.
func (s *Store) Get(ctx context.Context, key string) (*Override, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat override %s: %w", key, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read override %s: %w", key, err)
	}
	return &Override{Key: key, Text: string(data), UpdatedAt: info.ModTime().UTC()}, nil
}

// Set writes an override for key.
func (s *Store) Set(ctx context.Context, key, text string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("override text for %s is empty", key)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create override dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write override %s: %w", key, err)
	}
	s.logger.Info("prompt override saved", "key", key)
	return nil
}

// Delete removes the override for key. Deleting a missing override is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete override %s: %w", key, err)
	}
	return nil
}

// List returns every override sorted by key.
func (s *Store) List(ctx context.Context) ([]Override, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}

	var out []Override
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, overrideExt) {
			continue
		}
		o, err := s.Get(ctx, strings.TrimSuffix(name, overrideExt))
		if err != nil {
			s.logger.Warn("skipping unreadable override", "file", name, "error", err)
			continue
		}
		if o != nil {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
