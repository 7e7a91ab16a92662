package api

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blocknative/walletprovider/structs"
)

type Cache interface {
	Get(string) (*rate.Limiter, bool)
	Add(string, *rate.Limiter) bool
	Purge()
}

// Limitter keeps one token bucket per caller. A non-positive rate disables
// limiting.
type Limitter struct {
	c Cache

	mu        sync.RWMutex
	RateLimit rate.Limit
	Burst     int
}

func NewLimitter(ratel int, burst int, c Cache) *Limitter {
	return &Limitter{
		c:         c,
		RateLimit: rate.Limit(ratel),
		Burst:     burst,
	}
}

func (l *Limitter) Allow(ctx context.Context, key string) error {
	l.mu.RLock()
	limit, burst := l.RateLimit, l.Burst
	l.mu.RUnlock()

	if limit <= 0 {
		return nil
	}

	lim, ok := l.c.Get(key)
	if !ok {
		lim = rate.NewLimiter(limit, burst)
		l.c.Add(key, lim)
	}

	if !lim.Allow() {
		return ErrTooManyCalls
	}
	return nil
}

func (l *Limitter) OnConfigChange(c structs.OldNew) (err error) {
	switch c.Name {
	case "RateLimit":
		i, ok := c.New.(int)
		if !ok {
			return fmt.Errorf("unexpected type %T for %s", c.New, c.Name)
		}
		l.mu.Lock()
		l.RateLimit = rate.Limit(i)
		l.mu.Unlock()
		l.c.Purge()
	case "Burst":
		i, ok := c.New.(int)
		if !ok {
			return fmt.Errorf("unexpected type %T for %s", c.New, c.Name)
		}
		l.mu.Lock()
		l.Burst = i
		l.mu.Unlock()
		l.c.Purge()
	}
	return nil
}
