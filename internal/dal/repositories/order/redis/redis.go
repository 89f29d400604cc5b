package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	goredis "github.com/redis/go-redis/v9"
)

// OrderCache keeps serialized orders in Redis for a short time.
type OrderCache struct {
	client      *goredis.Client
	serviceName string
	ttl         time.Duration
}

// NewOrderCache creates a new order cache.
func NewOrderCache(client *goredis.Client, serviceName string, ttl time.Duration) *OrderCache {
	return &OrderCache{
		client:      client,
		serviceName: serviceName,
		ttl:         ttl,
	}
}

// Get returns the cached order and whether it was present.
func (c *OrderCache) Get(ctx context.Context, id string) (order.Order, bool, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return order.Order{}, false, nil
	}
	if err != nil {
		return order.Order{}, false, fmt.Errorf("failed to read cached order: %w", err)
	}

	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return order.Order{}, false, fmt.Errorf("failed to decode cached order: %w", err)
	}

	return o, true, nil
}

// Set stores o until the TTL expires.
func (c *OrderCache) Set(ctx context.Context, o order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	return c.client.Set(ctx, c.key(o.ID), data, c.ttl).Err()
}

// Invalidate drops the cached copy of id.
func (c *OrderCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *OrderCache) key(id string) string {
	return fmt.Sprintf("%s:order:%s", c.serviceName, id)
}
