package boundary

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Observer receives the outcome of every cached lookup: "hit", "miss",
// "not_found" or "error".
type Observer interface {
	ObserveBoundaryLookup(outcome string)
}

// Cache keeps recent lookups, including misses, in an LRU in front of
// another Service.
type Cache struct {
	log     zerolog.Logger
	next    Service
	entries *lru.Cache[string, *Boundary]
	obs     Observer
}

func NewCache(log zerolog.Logger, next Service, size int, obs Observer) (*Cache, error) {
	if size <= 0 {
		size = 512
	}
	entries, err := lru.New[string, *Boundary](size)
	if err != nil {
		return nil, err
	}
	return &Cache{log: log, next: next, entries: entries, obs: obs}, nil
}

func (c *Cache) Lookup(ctx context.Context, year int, scope, code string) (*Boundary, error) {
	key := cacheKey(year, scope, code)
	if b, ok := c.entries.Get(key); ok {
		c.observe("hit")
		return b, nil
	}

	b, err := c.next.Lookup(ctx, year, scope, code)
	if err != nil {
		c.observe("error")
		return nil, err
	}
	c.entries.Add(key, b)
	if b == nil {
		c.observe("not_found")
	} else {
		c.observe("miss")
	}
	return b, nil
}

// Preload fetches every request not yet cached. Failures are logged and
// skipped; the later Lookup will try again.
func (c *Cache) Preload(ctx context.Context, year int, requests []Request) error {
	for _, r := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := cacheKey(year, r.Scope, r.Code)
		if c.entries.Contains(key) {
			continue
		}
		b, err := c.next.Lookup(ctx, year, r.Scope, r.Code)
		if err != nil {
			c.log.Warn().Err(err).Str("scope", r.Scope).Str("code", r.Code).Msg("boundary preload failed")
			continue
		}
		c.entries.Add(key, b)
	}
	return nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) observe(outcome string) {
	if c.obs != nil {
		c.obs.ObserveBoundaryLookup(outcome)
	}
}
