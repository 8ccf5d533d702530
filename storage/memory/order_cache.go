package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/vipkit/payments"
)

// OrderCache is an in-memory payments.OrderCache with TTL.
type OrderCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]item
	now    func() time.Time
	closed chan struct{}
	once   sync.Once
}

type item struct {
	v   payments.PendingOrder
	exp time.Time
}

// NewOrderCache creates a cache whose entries live for ttl (default 24h).
// A background goroutine drops expired entries every minute until Close.
func NewOrderCache(ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &OrderCache{ttl: ttl, data: make(map[string]item), now: time.Now, closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (c *OrderCache) Put(ctx context.Context, o payments.PendingOrder) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[payments.OrderKey(o.Gateway, o.OrderID)] = item{v: o, exp: c.now().Add(c.ttl)}
	return nil
}

func (c *OrderCache) Get(ctx context.Context, gateway, orderID string) (payments.PendingOrder, bool, error) {
	_ = ctx
	k := payments.OrderKey(gateway, orderID)
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.data[k]
	if !ok {
		return payments.PendingOrder{}, false, nil
	}
	if c.now().After(it.exp) {
		delete(c.data, k)
		return payments.PendingOrder{}, false, nil
	}
	return it.v, true, nil
}

func (c *OrderCache) Del(ctx context.Context, gateway, orderID string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, payments.OrderKey(gateway, orderID))
	return nil
}

func (c *OrderCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.closed:
			return
		}
	}
}

func (c *OrderCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, v := range c.data {
		if now.After(v.exp) {
			delete(c.data, k)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *OrderCache) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

var _ payments.OrderCache = (*OrderCache)(nil)
