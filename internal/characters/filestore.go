package characters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	metadataFile = "character.json"
	imageFile    = "image.png"
)

// FileStore keeps each character in <dir>/<id>/character.json with an
// optional <dir>/<id>/image.png.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create characters dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

func (s *FileStore) folder(id string) string {
	return filepath.Join(s.dir, NormalizeID(id))
}

// Create saves a new character.
func (s *FileStore) Create(ctx context.Context, c *Character) (*Character, error) {
	out, err := prepare(c)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(out.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, out.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	out.HasImage = false
	if err := s.write(out); err != nil {
		return nil, err
	}
	s.logger.Info("character registered", "id", out.ID, "name", out.Name)
	return out, nil
}

// Get loads a character by id.
func (s *FileStore) Get(ctx context.Context, id string) (*Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(NormalizeID(id))
}

// Update replaces a character's fields. The seed is kept when the update omits it.
func (s *FileStore) Update(ctx context.Context, id string, c *Character) (*Character, error) {
	id = NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(id)
	if err != nil {
		return nil, err
	}
	upd := c.Clone()
	upd.ID = id
	out, err := prepare(upd)
	if err != nil {
		return nil, err
	}
	if out.Seed == nil {
		out.Seed = existing.Seed
	}
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = s.now().UTC()
	if err := s.write(out); err != nil {
		return nil, err
	}
	out.HasImage = existing.HasImage
	out.ReferenceImage = existing.ReferenceImage
	return out, nil
}

// Delete removes a character folder.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	id = NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.folder(id)); err != nil {
		return fmt.Errorf("delete character %s: %w", id, err)
	}
	s.logger.Info("character deleted", "id", id)
	return nil
}

// List returns every readable character sorted by name. Unreadable entries are skipped.
func (s *FileStore) List(ctx context.Context) ([]*Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	out := make([]*Character, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), IDPrefix) {
			continue
		}
		c, err := s.read(e.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable character", "id", e.Name(), "error", err)
			continue
		}
		out = append(out, c)
	}
	sortByName(out)
	return out, nil
}

// SetReference writes the reference image and locks the seed.
func (s *FileStore) SetReference(ctx context.Context, id string, seed int64, png []byte) (*Character, error) {
	id = NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read(id)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.folder(id), imageFile)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return nil, fmt.Errorf("write reference image: %w", err)
	}
	c.Seed = &seed
	c.UpdatedAt = s.now().UTC()
	if err := s.write(c); err != nil {
		return nil, err
	}
	c.HasImage = true
	c.ReferenceImage = path
	return c, nil
}

// Image returns the reference image bytes.
func (s *FileStore) Image(ctx context.Context, id string) ([]byte, error) {
	id = NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.folder(id), imageFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no reference image for %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read reference image: %w", err)
	}
	return data, nil
}

func (s *FileStore) read(id string) (*Character, error) {
	folder := s.folder(id)
	data, err := os.ReadFile(filepath.Join(folder, metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read character %s: %w", id, err)
	}
	var c Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode character %s: %w", id, err)
	}
	c.ID = filepath.Base(folder)
	c.Source = SourceRegistered
	imagePath := filepath.Join(folder, imageFile)
	if _, err := os.Stat(imagePath); err == nil {
		c.HasImage = true
		c.ReferenceImage = imagePath
	} else {
		c.HasImage = false
	}
	return &c, nil
}

func (s *FileStore) write(c *Character) error {
	folder := s.folder(c.ID)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create character dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode character: %w", err)
	}
	tmp := filepath.Join(folder, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write character: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(folder, metadataFile)); err != nil {
		return fmt.Errorf("write character: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
