package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/ordercore/internal/domain/order"
)

const defaultCacheTTL = 5 * time.Minute

// ViewCache keeps rebuilt order states in Redis so repeated reads skip
// replay entirely. Every operation is best effort; Redis being down must
// never fail a read.
type ViewCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewViewCache wraps a Redis client. A nil client disables caching. A zero
// or negative ttl falls back to the default.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ViewCache{redis: client, ttl: ttl}
}

// Get loads a cached order state. The second return is false on miss,
// decode failure, or Redis errors.
func (c *ViewCache) Get(ctx context.Context, orderID string) (order.State, bool) {
	if c == nil || c.redis == nil {
		return order.State{}, false
	}
	data, err := c.redis.Get(ctx, orderViewKey(orderID)).Bytes()
	if err != nil {
		return order.State{}, false
	}
	var state order.State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt entry is worse than a miss.
		_ = c.redis.Del(ctx, orderViewKey(orderID)).Err()
		return order.State{}, false
	}
	return state, true
}

// Put stores an order state under the configured TTL.
func (c *ViewCache) Put(ctx context.Context, state order.State) {
	if c == nil || c.redis == nil || state.OrderID == "" {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, orderViewKey(state.OrderID), data, c.ttl).Err()
}

// Evict drops the cached state for an order. Called after every successful
// append so readers never serve a view older than the journal tells them
// exists.
func (c *ViewCache) Evict(ctx context.Context, orderID string) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, orderViewKey(orderID)).Err()
}

func orderViewKey(orderID string) string {
	return "order_view:" + orderID
}
