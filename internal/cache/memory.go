package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache backed by patrickmn/go-cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a cache whose entries default to ttl and are swept
// every cleanup interval.
func NewMemory(ttl, cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int { return m.c.ItemCount() }

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
