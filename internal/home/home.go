package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the storybooker home directory.
	DefaultDirName = ".storybooker"

	// JobsDirName holds one subdirectory per job.
	JobsDirName = "jobs"

	// CharactersDirName holds the file-backed character store.
	CharactersDirName = "characters"

	// PromptsDirName holds prompt override templates.
	PromptsDirName = "prompts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the SQLite database used by the sqlite character backend.
	DatabaseFileName = "storybooker.db"
)

// Dir represents the storybooker home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.storybooker).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the path to the SQLite database.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.JobsDir(), d.CharactersDir(), d.PromptsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// JobsDir returns the root of all job directories.
func (d *Dir) JobsDir() string {
	return filepath.Join(d.path, JobsDirName)
}

// JobDir returns the directory owned by a single job.
func (d *Dir) JobDir(jobID string) string {
	return filepath.Join(d.JobsDir(), jobID)
}

// JobImagesDir returns the directory for a job's generated images.
func (d *Dir) JobImagesDir(jobID string) string {
	return filepath.Join(d.JobDir(jobID), "images")
}

// EnsureJobDirs creates the job directory and its images subdirectory.
func (d *Dir) EnsureJobDirs(jobID string) error {
	return os.MkdirAll(d.JobImagesDir(jobID), 0o755)
}

// BeatImagePath returns the path for a beat illustration.
// Beat numbers are 1-indexed; slot 0 is the main illustration.
func (d *Dir) BeatImagePath(jobID string, beat, slot int) string {
	return filepath.Join(d.JobImagesDir(jobID), fmt.Sprintf("beat_%02d_%d.png", beat, slot))
}

// CoverImagePath returns the path for the cover illustration.
func (d *Dir) CoverImagePath(jobID string) string {
	return filepath.Join(d.JobImagesDir(jobID), "cover.png")
}

// CharacterImagePath returns the path for a character reference generated during a job.
func (d *Dir) CharacterImagePath(jobID, characterID string) string {
	return filepath.Join(d.JobImagesDir(jobID), fmt.Sprintf("character_%s.png", characterID))
}

// DocumentPath returns the path of the final PDF for one language.
func (d *Dir) DocumentPath(jobID, lang string) string {
	return filepath.Join(d.JobDir(jobID), DocumentFileName(jobID, lang))
}

// DocumentFileName returns the download file name for a job's PDF.
func DocumentFileName(jobID, lang string) string {
	return fmt.Sprintf("storybook_%s_%s.pdf", jobID, lang)
}

// CharactersDir returns the root of the file-backed character store.
func (d *Dir) CharactersDir() string {
	return filepath.Join(d.path, CharactersDirName)
}

// PromptsDir returns the directory of prompt override files.
func (d *Dir) PromptsDir() string {
	return filepath.Join(d.path, PromptsDirName)
}
