package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"taskmanager/internal/domain/errors"
)

// LocalStore хранит файлы в каталоге на диске. Handle - путь к файлу.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty upload dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Store(_ context.Context, r io.Reader, suggestedName string) (string, error) {
	name := filepath.Base(suggestedName)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", suggestedName)
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	log.Println("[SUCCESS] Файл записан на диск:", path)
	return path, nil
}

func (s *LocalStore) Retrieve(_ context.Context, handle string) (io.ReadCloser, error) {
	if !s.owns(handle) {
		return nil, errors.ErrFileNotFound
	}
	f, err := os.Open(handle)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Remove(_ context.Context, handle string) error {
	if !s.owns(handle) {
		return errors.ErrFileNotFound
	}
	if err := os.Remove(handle); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// owns не даёт выйти за пределы каталога загрузок.
func (s *LocalStore) owns(handle string) bool {
	rel, err := filepath.Rel(s.dir, handle)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
