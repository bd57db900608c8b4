package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"jobmate/scraper-service/internal/model"
)

// LocalStore keeps job tables under Root using the same key layout as S3.
type LocalStore struct {
	Root string
}

func (l LocalStore) path(key string) (string, error) {
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(root, filepath.FromSlash(objectKey(key)))
	if !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("key escapes root: %s", key)
	}
	return abs, nil
}

func (l LocalStore) Exists(_ context.Context, key string) (bool, error) {
	abs, err := l.path(key)
	if err != nil {
		return false, &Error{Op: "stat", Key: key, Err: err}
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, &Error{Op: "stat", Key: key, Err: err}
	}
}

// Upload writes the CSV and returns a file:// URL to it.
func (l LocalStore) Upload(_ context.Context, batch model.JobBatch, key string) (string, error) {
	abs, err := l.path(key)
	if err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}

	// Written beside the target and renamed, so Exists never sees a partial file.
	f, err := os.CreateTemp(filepath.Dir(abs), ".jobs-*.csv")
	if err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := batch.WriteCSV(f); err != nil {
		_ = f.Close()
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp, abs); err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
