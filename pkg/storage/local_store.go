package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes under dir; the HTTP server serves dir at /uploads.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + key)
	path := filepath.Join(s.dir, clean)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("local storage: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("local storage: write %s: %w", key, err)
	}
	return fmt.Sprintf("%s/uploads%s", s.baseURL, filepath.ToSlash(clean)), nil
}
