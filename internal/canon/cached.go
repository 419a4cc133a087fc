package canon

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used by NewCached when size <= 0.
const DefaultCacheSize = 4096

// NewCached memoizes fn. Batch lookups from the extension repeat the same
// page URLs on every tab switch, so hits are common.
func NewCached(fn Canonicalizer, size int) (Canonicalizer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create canon cache: %w", err)
	}

	return func(raw string) string {
		if v, ok := cache.Get(raw); ok {
			return v
		}
		v := fn(raw)
		cache.Add(raw, v)
		return v
	}, nil
}
