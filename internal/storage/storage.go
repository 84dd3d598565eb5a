// Package storage persists attachment bytes outside the database. Objects
// are addressed by an opaque key of the form "<user>/<uuid><ext>".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoDirectURL is returned by backends that cannot hand out URLs the
// client can fetch directly; callers stream through the API instead.
var ErrNoDirectURL = errors.New("storage: backend has no direct URLs")

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Storage is the object store used for chat attachments.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns a time-limited download URL for key.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewKey builds an object key under the owner's prefix. The extension comes
// from the file name, or from the content type when the name has none.
func NewKey(owner, fileName, contentType string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%s%s", owner, uuid.NewString(), ext)
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
