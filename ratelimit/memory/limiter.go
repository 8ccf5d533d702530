package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit allows Limit requests per Window, refilled evenly.
type Limit struct {
	Limit  int
	Window time.Duration
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter is an in-memory token-bucket limiter keyed by bucket and client.
// It is the single-node fallback when Redis is not configured.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	entries map[string]*entry
	idle    time.Duration
	swept   time.Time
	now     func() time.Time
}

func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		entries: make(map[string]*entry),
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed reports whether key may make one more request in bucket.
func (l *Limiter) AllowNamed(ctx context.Context, bucket, key string) (bool, error) {
	_ = ctx
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	now := l.now()
	k := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	e, ok := l.entries[k]
	if !ok {
		lim := l.get(bucket)
		every := lim.Window / time.Duration(max(lim.Limit, 1))
		e = &entry{lim: rate.NewLimiter(rate.Every(every), lim.Limit)}
		l.entries[k] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1), nil
}

// sweep drops limiters idle long enough to have refilled completely.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.swept) < time.Minute {
		return
	}
	l.swept = now
	for k, e := range l.entries {
		if now.Sub(e.seen) > l.idle {
			delete(l.entries, k)
		}
	}
}
