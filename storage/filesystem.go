package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotExist is returned when no bytes are stored under a name.
	ErrNotExist = errors.New("stored file not found")
	// ErrTooLarge is returned by Save when the payload exceeds the limit.
	ErrTooLarge = errors.New("stored file exceeds size limit")
	// ErrExist is returned by Save when bytes are already stored under the name.
	ErrExist = errors.New("stored file already exists")
	// ErrInvalidName rejects names that would escape the store directory.
	ErrInvalidName = errors.New("invalid stored file name")
)

// Store persists uploaded bytes under flat, unique names.
type Store interface {
	Save(name string, data io.Reader, limit int64) (int64, error)
	GetPath(name string) (string, error)
	Delete(name string) error
	EnsureDir() error
}

// FileSystemStore keeps uploads in a single local directory.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0o755); err != nil {
		return fmt.Errorf("create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save copies at most limit bytes from data into name; a limit of zero or less means unbounded.
// A partial file is removed when the copy fails or the limit is exceeded.
func (fs *FileSystemStore) Save(name string, data io.Reader, limit int64) (int64, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return 0, err
	}

	// O_EXCL: two items never share bytes even if names were to collide.
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, ErrExist
		}
		return 0, fmt.Errorf("create file %s: %w", filePath, err)
	}

	src := data
	if limit > 0 {
		src = io.LimitReader(data, limit+1)
	}
	n, err := io.Copy(file, src)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filePath)
		return 0, fmt.Errorf("write file: %w", err)
	}
	if limit > 0 && n > limit {
		_ = os.Remove(filePath)
		return 0, ErrTooLarge
	}
	return n, nil
}

// GetPath returns the path of stored bytes, or ErrNotExist.
func (fs *FileSystemStore) GetPath(name string) (string, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		return "", fmt.Errorf("stat file: %w", err)
	}
	return filePath, nil
}

// Delete removes stored bytes. Missing files are not an error.
func (fs *FileSystemStore) Delete(name string) error {
	filePath, err := fs.filePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file %s: %w", filePath, err)
	}
	return nil
}

func (fs *FileSystemStore) filePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(fs.basePath, name), nil
}
