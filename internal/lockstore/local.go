package lockstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/depfix-tools/depfix/internal/errors"
)

// LocalStore keeps lock documents in a local directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at the given directory.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Protocol returns "file".
func (s *LocalStore) Protocol() string {
	return "file"
}

// Put writes the document into the store directory, creating it if needed.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.NewLockError(s.dir, "store", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewLockError(path, "store", err)
	}
	return nil
}

// Get reads a document from the store directory.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("lock document", path)
		}
		return nil, errors.NewLockError(path, "fetch", err)
	}
	return data, nil
}
