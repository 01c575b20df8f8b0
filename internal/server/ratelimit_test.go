package server

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(limit, window)
	l.now = c.now
	return l, c
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l, c := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d should pass", i+1)
		}
		c.advance(10 * time.Second)
	}
	if l.Allow("a") {
		t.Fatal("4th request inside the window should be rejected")
	}

	// first request was at t=0; at t=60s it leaves the window
	c.advance(30 * time.Second)
	if !l.Allow("a") {
		t.Fatal("request after the oldest expired should pass")
	}
	if l.Allow("a") {
		t.Fatal("window is full again")
	}
}

func TestLimiter_RejectionsAreNotRecorded(t *testing.T) {
	l, c := newTestLimiter(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request should pass")
	}
	for i := 0; i < 5; i++ {
		c.advance(10 * time.Second)
		if l.Allow("a") {
			t.Fatalf("request at +%ds should be rejected", (i+1)*10)
		}
	}
	c.advance(10 * time.Second)
	if !l.Allow("a") {
		t.Fatal("rejected requests must not extend the window")
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if !l.Allow("a") || !l.Allow("b") {
		t.Fatal("each client gets its own budget")
	}
	if l.Allow("a") {
		t.Fatal("client a is over budget")
	}
}

func TestLimiter_PrunesIdleClients(t *testing.T) {
	l, c := newTestLimiter(2, time.Minute)

	l.Allow("idle")
	c.advance(2 * time.Minute)
	for i := 0; i < pruneEvery; i++ {
		l.Allow("busy")
		c.advance(time.Minute)
	}
	if n := l.Clients(); n != 1 {
		t.Errorf("expected only the busy client to remain, got %d", n)
	}
}
