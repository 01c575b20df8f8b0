package server

import (
	"sync"
	"time"
)

// Limiter is a per-client sliding-window rate limiter. Each client owns a
// fixed-size circular buffer holding the times of its last accepted
// requests; a request is rejected while the oldest of those is still
// inside the window. Rejected requests are not recorded.
//
// Thread-safe.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*hits
	calls   int
	now     func() time.Time
}

// pruneEvery is how many Allow calls pass between sweeps of idle clients.
const pruneEvery = 1024

// hits is a circular buffer of request times.
type hits struct {
	buf  []time.Time
	pos  int // next write position; the oldest entry once full
	full bool
}

// NewLimiter allows limit requests per client within any window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*hits),
		now:     time.Now,
	}
}

// Allow records a request from client and reports whether it may proceed.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(now)
	}

	h, ok := l.clients[client]
	if !ok {
		h = &hits{buf: make([]time.Time, l.limit)}
		l.clients[client] = h
	}
	if h.full && now.Sub(h.buf[h.pos]) < l.window {
		return false
	}
	h.buf[h.pos] = now
	h.pos = (h.pos + 1) % len(h.buf)
	if h.pos == 0 {
		h.full = true
	}
	return true
}

// Clients returns the number of clients currently tracked.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// prune forgets clients whose latest request left the window.
func (l *Limiter) prune(now time.Time) {
	for k, h := range l.clients {
		if now.Sub(h.latest()) >= l.window {
			delete(l.clients, k)
		}
	}
}

func (h *hits) latest() time.Time {
	if h.pos == 0 {
		if !h.full {
			return time.Time{}
		}
		return h.buf[len(h.buf)-1]
	}
	return h.buf[h.pos-1]
}
