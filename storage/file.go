package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// EnvSessionFile overrides the location of the session file.
const EnvSessionFile = "PROJECTBOARD_SESSION_FILE"

// SessionFilePath returns the session file location: $PROJECTBOARD_SESSION_FILE
// when set, else $XDG_CONFIG_HOME/projectboard/session.json, else
// ~/.config/projectboard/session.json.
func SessionFilePath() string {
	if p := os.Getenv(EnvSessionFile); p != "" {
		return p
	}
	return filepath.Join(configDir(), "session.json")
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "projectboard")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "projectboard")
}

// File keeps the session in a JSON document on disk. Writes go through a
// temporary file and a rename so a reader never sees half a record.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	if path == "" {
		path = SessionFilePath()
	}
	return &File{path: path}
}

// Path returns the file backing the store.
func (f *File) Path() string { return f.path }

// Load returns an empty record when the file does not exist.
func (f *File) Load(_ context.Context) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("reading session file %s: %w", f.path, err)
	}
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parsing session file %s: %w", f.path, err)
	}
	return rec, nil
}

func (f *File) Save(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := sonic.ConfigStd.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("securing session file %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing session file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing session file %s: %w", f.path, err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file %s: %w", f.path, err)
	}
	return nil
}
