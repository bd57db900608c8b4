// Package storage persists job tables under their daily keys. S3Store is the
// production backend; LocalStore keeps the same layout on disk for local runs.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Prefix is prepended to every key inside the bucket or root directory.
const Prefix = "scrape"

// ErrStorage matches every *Error via errors.Is.
var ErrStorage = errors.New("storage error")

// Error describes a failed storage operation on one key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStorage }

// objectKey maps a file-naming key to the stored object name.
func objectKey(key string) string {
	return Prefix + "/" + strings.TrimPrefix(key, "/")
}

// escapeKey escapes each path segment, keeping the separators.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
