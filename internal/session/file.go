package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStore keeps the session snapshot in a single JSON file.
type FileStore struct {
	path string
	log  *zap.Logger
}

// DefaultFilePath returns the default snapshot path (~/.local/share/rexolve/sessions.json).
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "rexolve", "sessions.json"), nil
}

// NewFileStore returns a store backed by the JSON file at path. The parent
// directory is created if needed; the file itself is created on first save.
func NewFileStore(path string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{path: path, log: log}, nil
}

func (s *FileStore) Load() []Session {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.log.Warn("read session file", zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return decodeSlot(s.log, s.path, data)
}

// Save writes to a temp file in the same directory and renames it over the
// snapshot, so a crash leaves either the old or the new snapshot.
func (s *FileStore) Save(sessions []Session) error {
	data, err := Encode(sessions)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
