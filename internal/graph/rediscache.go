package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamebook/server/internal/storage"
)

const (
	graphKeyPrefix = "graph:scenario:"
	graphTTL       = 24 * time.Hour
)

// RedisCache caches compiled graphs in Redis. Scenario content only changes
// on import, which invalidates the key, so the TTL is a backstop rather than
// a freshness mechanism.
type RedisCache struct {
	store *storage.RedisStore
}

func NewRedisCache(store *storage.RedisStore) *RedisCache {
	return &RedisCache{store: store}
}

func graphKey(scenarioID uint) string {
	return fmt.Sprintf("%s%d", graphKeyPrefix, scenarioID)
}

func (c *RedisCache) GetGraph(ctx context.Context, scenarioID uint) (*Graph, error) {
	raw, err := c.store.Get(ctx, graphKey(scenarioID))
	if err != nil {
		return nil, fmt.Errorf("failed to read cached graph: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var g Graph
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, nil
	}
	return &g, nil
}

func (c *RedisCache) SetGraph(ctx context.Context, g *Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	return c.store.Set(ctx, graphKey(g.ScenarioID), data, graphTTL)
}

func (c *RedisCache) InvalidateGraph(ctx context.Context, scenarioID uint) error {
	return c.store.Del(ctx, graphKey(scenarioID))
}
