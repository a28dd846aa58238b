package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Journal is the persisted form of a recorded session.
type Journal struct {
	Version  int       `yaml:"version"`
	Name     string    `yaml:"name"`
	Session  string    `yaml:"session,omitempty"`
	SavedAt  time.Time `yaml:"savedAt"`
	Commands []Command `yaml:"commands"`
}

const journalVersion = 1

// ErrUnsupportedVersion is returned for journals written by a newer release.
var ErrUnsupportedVersion = errors.New("command: unsupported journal version")

// Encode marshals a journal to YAML.
func Encode(j Journal) ([]byte, error) {
	if j.Version == 0 {
		j.Version = journalVersion
	}
	if j.SavedAt.IsZero() {
		j.SavedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal journal: %w", err)
	}
	return data, nil
}

// Decode parses a YAML journal.
func Decode(data []byte) (Journal, error) {
	var j Journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return Journal{}, fmt.Errorf("unmarshal journal: %w", err)
	}
	if j.Version > journalVersion {
		return Journal{}, fmt.Errorf("%w: %d (max supported: %d)", ErrUnsupportedVersion, j.Version, journalVersion)
	}
	return j, nil
}

// Save writes a journal to path atomically using a temporary file and rename.
func Save(j Journal, path string) error {
	data, err := Encode(j)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a journal from path.
func Load(path string) (Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Journal{}, fmt.Errorf("read journal: %w", err)
	}
	return Decode(data)
}

// SaveRecorder writes the named journal of r to path.
func SaveRecorder(r *Recorder, name, session, path string) error {
	cmds := r.Get(name)
	if len(cmds) == 0 {
		return fmt.Errorf("journal %q is empty", name)
	}
	return Save(Journal{Name: name, Session: session, Commands: cmds}, path)
}

// LoadRecorder reads path into r under the journal's name. A missing file
// leaves r untouched.
func LoadRecorder(r *Recorder, path string) (string, error) {
	j, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	name := j.Name
	if name == "" {
		name = filepath.Base(path)
	}
	if err := r.Set(name, j.Commands); err != nil {
		return "", err
	}
	return name, nil
}
