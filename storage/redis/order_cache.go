package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/PaulFidika/vipkit/payments"
	"github.com/redis/go-redis/v9"
)

// OrderCache stores pending orders in Redis so any replica can serve the
// verify callback.
type OrderCache struct {
	rdb   redis.UniversalClient
	keyNS string
	ttl   time.Duration
}

func NewOrderCache(rdb redis.UniversalClient, keyPrefix string, ttl time.Duration) *OrderCache {
	if keyPrefix == "" {
		keyPrefix = "vipkit:order:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &OrderCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *OrderCache) key(gateway, orderID string) string {
	return c.keyNS + payments.OrderKey(gateway, orderID)
}

func (c *OrderCache) Put(ctx context.Context, o payments.PendingOrder) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(o.Gateway, o.OrderID), b, c.ttl).Err()
}

func (c *OrderCache) Get(ctx context.Context, gateway, orderID string) (payments.PendingOrder, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(gateway, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return payments.PendingOrder{}, false, nil
	}
	if err != nil {
		return payments.PendingOrder{}, false, err
	}
	var o payments.PendingOrder
	if err := json.Unmarshal(val, &o); err != nil {
		return payments.PendingOrder{}, false, err
	}
	return o, true, nil
}

func (c *OrderCache) Del(ctx context.Context, gateway, orderID string) error {
	return c.rdb.Del(ctx, c.key(gateway, orderID)).Err()
}

var _ payments.OrderCache = (*OrderCache)(nil)
