package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"parlrag/internal/domain"
)

// QueryEncoder turns question text into a unit-norm vector and memoises the
// result per trimmed query text for the life of the encoder.
type QueryEncoder struct {
	encoder domain.VectorEncoder
	cache   vectorCache
	group   singleflight.Group
	logger  *slog.Logger
	calls   atomic.Int64
}

// NewQueryEncoder wraps encoder with a query cache. cacheSize <= 0 keeps every
// query ever seen; a positive size bounds the cache with LRU eviction.
func NewQueryEncoder(encoder domain.VectorEncoder, cacheSize int, logger *slog.Logger) (*QueryEncoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cache vectorCache
	if cacheSize > 0 {
		c, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}
		cache = lruCache{c}
	} else {
		cache = &mapCache{m: make(map[string][]float32)}
	}
	return &QueryEncoder{encoder: encoder, cache: cache, logger: logger}, nil
}

// Encode returns the cached vector for the trimmed text, encoding it on first
// use. Encoder failures are returned as is and never cached. The returned slice
// is shared with the cache and must not be modified.
func (e *QueryEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	q := strings.TrimSpace(text)
	if v, ok := e.cache.Get(q); ok {
		return v, nil
	}
	v, err, _ := e.group.Do(q, func() (any, error) {
		if v, ok := e.cache.Get(q); ok {
			return v, nil
		}
		e.calls.Add(1)
		rows, err := e.encoder.Encode(ctx, []string{q})
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		if len(rows) != 1 {
			return nil, fmt.Errorf("encode query: expected 1 vector, got %d", len(rows))
		}
		vec := Normalize(append([]float32(nil), rows[0]...))
		e.cache.Add(q, vec)
		e.logger.Debug("query_encoded",
			slog.Int("dimension", len(vec)),
			slog.String("model", e.encoder.Version()),
		)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EncoderCalls reports how many times the underlying encoder was invoked.
func (e *QueryEncoder) EncoderCalls() int64 { return e.calls.Load() }

type vectorCache interface {
	Get(key string) ([]float32, bool)
	Add(key string, v []float32)
}

type mapCache struct {
	mu sync.RWMutex
	m  map[string][]float32
}

func (c *mapCache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Add(key string, v []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
}

type lruCache struct {
	c *lru.Cache[string, []float32]
}

func (l lruCache) Get(key string) ([]float32, bool) { return l.c.Get(key) }

func (l lruCache) Add(key string, v []float32) { l.c.Add(key, v) }
