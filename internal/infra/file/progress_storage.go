package file

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const appDirName = "quiz-progress"

var validKey = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ProgressStorage keeps each progress entry in its own file under dir
// (e.g. dir/xp, dir/badges). Writes go through a temp file and rename so a
// crash never leaves a half-written entry.
type ProgressStorage struct {
	dir string
}

// NewProgressStorage creates storage rooted at dir. The directory is created
// on the first Save. Pass an empty string to use the default XDG state path.
func NewProgressStorage(dir string) *ProgressStorage {
	if dir == "" {
		dir = DefaultDir()
	}
	return &ProgressStorage{dir: dir}
}

// Dir returns the directory holding the entries.
func (s *ProgressStorage) Dir() string {
	return s.dir
}

func (s *ProgressStorage) Load(_ context.Context, key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *ProgressStorage) Save(_ context.Context, key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating progress dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	committed = true
	return nil
}

func (s *ProgressStorage) Clear(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (s *ProgressStorage) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid progress key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// UserStorage returns storage for one user under root/users/u{hex(userID)}.
// Hex keeps distinct ids in distinct directories, even ids holding path
// separators or differing only in case.
func UserStorage(root, userID string) *ProgressStorage {
	if root == "" {
		root = DefaultDir()
	}
	return NewProgressStorage(filepath.Join(root, "users", "u"+hex.EncodeToString([]byte(userID))))
}

// DefaultDir returns ~/.local/state/quiz-progress, respecting XDG_STATE_HOME.
func DefaultDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
