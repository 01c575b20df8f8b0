package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, reset)
	cb.now = clk.now
	return cb, clk
}

var errFail = errors.New("fail")

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errFail })
	if cb.CurrentState() != StateClosed {
		t.Errorf("non-consecutive failures should not trip, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(2, 50*time.Millisecond)
	var transitions []string
	cb.OnStateChange = func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) }

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}
	if cb.CurrentState() != StateOpen {
		t.Fatal("expected Open")
	}

	clk.advance(60 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed after successful trial call, got %v", cb.CurrentState())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	cb, clk := newTestBreaker(2, 50*time.Millisecond)
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}

	clk.advance(60 * time.Millisecond)
	cb.Execute(func() error { return errFail })
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after failed trial call, got %v", cb.CurrentState())
	}

	clk.advance(10 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("reset timeout restarts after a failed trial call, got %v", err)
	}
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		err := cb.ExecuteCtx(ctx, func() error { return context.Canceled })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("cancelled calls must not trip the breaker, got %v", cb.CurrentState())
	}

	cb.ExecuteCtx(context.Background(), func() error { return errFail })
	cb.ExecuteCtx(context.Background(), func() error { return errFail })
	if cb.CurrentState() != StateOpen {
		t.Errorf("live failures still count, got %v", cb.CurrentState())
	}
}
