package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config describes a token bucket per key: Burst tokens, refilled at
// one token per Interval. Keys idle for longer than Expiry are evicted.
type Config struct {
	Burst    int
	Interval time.Duration
	Expiry   time.Duration
}

// Limiter keeps one token bucket per caller key.
type Limiter struct {
	cfg     Config
	clients map[string]*clientLimiter
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewLimiter(cfg Config) *Limiter {
	lm := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
		done:    make(chan struct{}),
	}
	go lm.refresh()
	return lm
}

// Allow reports whether the caller identified by id may proceed now.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(l.cfg.Interval), l.cfg.Burst),
		}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

// Stop ends the eviction loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) refresh() {
	if l.cfg.Expiry <= 0 {
		return
	}

	ticker := time.NewTicker(l.cfg.Expiry)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evict(time.Now())
		}
	}
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, v := range l.clients {
		if now.Sub(v.lastAccess) > l.cfg.Expiry {
			delete(l.clients, id)
		}
	}
}
