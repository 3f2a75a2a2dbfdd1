package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a read-through cache. Entries are populated by the
// implementation's loader; there is no external write path.
type Cache[K comparable, V any] interface {
	Get(ctx context.Context, key K) (*V, error)
}
