package wikifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

const cacheKeyPrefix = "wikifier:"

// Cache stores extraction results in redis keyed by text hash, so repeated
// enrichment of the same resource (duplicate processing after lease expiry
// is tolerated, not prevented) does not re-pay the annotation call.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, text string) ([]enrich.Entity, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var entities []enrich.Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, false
	}
	return entities, true
}

func (c *Cache) Set(ctx context.Context, text string, entities []enrich.Entity) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return
	}
	// Best effort; a failed write only costs a future annotation call.
	_ = c.client.Set(ctx, cacheKey(text), data, c.ttl).Err()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
