// Package cache stores completed LLM responses keyed by a digest of the
// request, so identical non-streaming completions are served without a
// provider round trip. Two backends exist: an in-process TTL map for single
// instances and Redis for deployments with several replicas.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache is a byte-valued TTL cache. A miss is (nil, false, nil); backend
// failures are returned as errors so callers can log and fall through.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key returns a stable hex SHA-256 over parts joined with a separator that
// cannot appear in UTF-8 text.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}
