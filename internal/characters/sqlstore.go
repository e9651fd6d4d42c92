package characters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// characterRow is the database shape of a Character.
type characterRow struct {
	ID                  string `gorm:"primaryKey;size:128"`
	Name                string `gorm:"not null;index"`
	Species             string
	PhysicalDescription string
	KeyFeatures         []string          `gorm:"serializer:json"`
	ColorPalette        map[string]string `gorm:"serializer:json"`
	Tags                []string          `gorm:"serializer:json"`
	Seed                *int64
	RefinedPrompt       string
	Image               []byte
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (characterRow) TableName() string { return "characters" }

func (r *characterRow) toCharacter() *Character {
	return &Character{
		ID:                  r.ID,
		Name:                r.Name,
		Species:             r.Species,
		PhysicalDescription: r.PhysicalDescription,
		KeyFeatures:         r.KeyFeatures,
		ColorPalette:        r.ColorPalette,
		Tags:                r.Tags,
		Seed:                r.Seed,
		RefinedPrompt:       r.RefinedPrompt,
		HasImage:            len(r.Image) > 0,
		Source:              SourceRegistered,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func rowFrom(c *Character) *characterRow {
	return &characterRow{
		ID:                  c.ID,
		Name:                c.Name,
		Species:             c.Species,
		PhysicalDescription: c.PhysicalDescription,
		KeyFeatures:         c.KeyFeatures,
		ColorPalette:        c.ColorPalette,
		Tags:                c.Tags,
		Seed:                c.Seed,
		RefinedPrompt:       c.RefinedPrompt,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// metadataColumns are written by Create and Update; the image column is only
// touched by SetReference.
var metadataColumns = []string{
	"name", "species", "physical_description", "key_features", "color_palette",
	"tags", "seed", "refined_prompt", "updated_at",
}

// SQLStore keeps characters in a SQLite database through gorm.
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenSQLStore opens (or creates) the SQLite database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLStore(path string, log *slog.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open character database: %w", err)
	}
	return NewSQLStore(db, log)
}

// NewSQLStore wraps an existing gorm connection and migrates the schema.
func NewSQLStore(db *gorm.DB, log *slog.Logger) (*SQLStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&characterRow{}); err != nil {
		return nil, fmt.Errorf("migrate characters: %w", err)
	}
	return &SQLStore{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) find(ctx context.Context, id string, withImage bool) (*characterRow, error) {
	var row characterRow
	q := s.db.WithContext(ctx)
	if !withImage {
		q = q.Omit("image")
	}
	err := q.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", id, err)
	}
	return &row, nil
}

func (s *SQLStore) hasImage(ctx context.Context, id string) bool {
	var n int64
	s.db.WithContext(ctx).Model(&characterRow{}).
		Where("id = ? AND image IS NOT NULL AND length(image) > 0", id).
		Count(&n)
	return n > 0
}

// Create saves a new character.
func (s *SQLStore) Create(ctx context.Context, c *Character) (*Character, error) {
	out, err := prepare(c)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	out.HasImage = false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&characterRow{}).Where("id = ?", out.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, out.ID)
		}
		return tx.Create(rowFrom(out)).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create character: %w", err)
	}
	s.logger.Info("character registered", "id", out.ID, "name", out.Name)
	return out, nil
}

// Get loads a character by id.
func (s *SQLStore) Get(ctx context.Context, id string) (*Character, error) {
	id = NormalizeID(id)
	row, err := s.find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	c := row.toCharacter()
	c.HasImage = s.hasImage(ctx, id)
	return c, nil
}

// Update replaces a character's fields. The seed is kept when the update omits it.
func (s *SQLStore) Update(ctx context.Context, id string, c *Character) (*Character, error) {
	id = NormalizeID(id)
	existing, err := s.find(ctx, id, false)
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
	out.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Model(&characterRow{ID: id}).
		Select(metadataColumns).Updates(rowFrom(out)).Error; err != nil {
		return nil, fmt.Errorf("update character %s: %w", id, err)
	}
	out.HasImage = s.hasImage(ctx, id)
	return out, nil
}

// Delete removes a character.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	id = NormalizeID(id)
	res := s.db.WithContext(ctx).Delete(&characterRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete character %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info("character deleted", "id", id)
	return nil
}

// List returns all characters sorted by name.
func (s *SQLStore) List(ctx context.Context) ([]*Character, error) {
	var rows []characterRow
	if err := s.db.WithContext(ctx).Omit("image").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	out := make([]*Character, len(rows))
	for i := range rows {
		out[i] = rows[i].toCharacter()
		out[i].HasImage = s.hasImage(ctx, rows[i].ID)
	}
	sortByName(out)
	return out, nil
}

// SetReference stores the reference image and locks the seed.
func (s *SQLStore) SetReference(ctx context.Context, id string, seed int64, png []byte) (*Character, error) {
	id = NormalizeID(id)
	res := s.db.WithContext(ctx).Model(&characterRow{}).Where("id = ?", id).
		Updates(map[string]any{"image": png, "seed": seed, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("store reference for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// Image returns the reference image bytes.
func (s *SQLStore) Image(ctx context.Context, id string) ([]byte, error) {
	id = NormalizeID(id)
	row, err := s.find(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if len(row.Image) == 0 {
		return nil, fmt.Errorf("%w: no reference image for %s", ErrNotFound, id)
	}
	return row.Image, nil
}

var _ Store = (*SQLStore)(nil)
