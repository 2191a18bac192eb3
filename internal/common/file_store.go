package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileDocumentStore keeps each key as a file in Dir. Writers take an exclusive
// lock on a sidecar lock file and replace the document with a rename, so
// readers never observe a partial write.
type FileDocumentStore struct {
	Dir         string
	LockTimeout time.Duration
}

var _ DocumentStore = (*FileDocumentStore)(nil)

func NewFileDocumentStore(dir string) (*FileDocumentStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return &FileDocumentStore{Dir: dir, LockTimeout: 10 * time.Second}, nil
}

func (s *FileDocumentStore) Backend() string {
	return "file"
}

func (s *FileDocumentStore) path(key string) string {
	return filepath.Join(s.Dir, unsafeKeyChars.ReplaceAllString(key, "_"))
}

func (s *FileDocumentStore) Put(ctx context.Context, key string, body []byte) error {
	target := s.path(key)

	lock := flock.New(target + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("file store: lock %s: %w", key, err)
	}
	if !locked {
		return fmt.Errorf("file store: lock %s: timed out", key)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("file store: replace %s: %w", key, err)
	}
	return nil
}

func (s *FileDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file store: read %s: %w", key, err)
	}
	return body, nil
}

func (s *FileDocumentStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("file store: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("file store: %s is not a directory", s.Dir)
	}
	return nil
}

func (s *FileDocumentStore) Close() error {
	return nil
}
