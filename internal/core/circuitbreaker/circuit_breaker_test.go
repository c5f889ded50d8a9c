package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"picpic.bench/internal/core/domain"
)

type flakySink struct {
	err    error
	calls  int
	closed bool
}

func (f *flakySink) Publish(context.Context, domain.Event) error {
	f.calls++
	return f.err
}

func (f *flakySink) Close() error {
	f.closed = true
	return nil
}

func TestCircuitBreaker_TripsAfterFailures(t *testing.T) {
	cb := NewWithTimeout("test", time.Hour)
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	called := false
	err := cb.Execute(context.Background(), func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker should short-circuit; err=%v called=%v", err, called)
	}
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New("ctx").Execute(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestPublisher_StopsCallingDeadSink(t *testing.T) {
	sink := &flakySink{err: errors.New("connection refused")}
	p := NewPublisher("sink", sink)

	for i := 0; i < 10; i++ {
		_ = p.Publish(context.Background(), domain.Event{Type: domain.EventMeasurement})
	}
	if sink.calls != 3 {
		t.Errorf("sink called %d times, want 3 before the breaker opened", sink.calls)
	}
	if p.State() != gobreaker.StateOpen {
		t.Errorf("state = %v", p.State())
	}
	if err := p.Close(); err != nil || !sink.closed {
		t.Error("close should reach the sink")
	}
}

func TestPublisher_HealthySinkPassesThrough(t *testing.T) {
	sink := &flakySink{}
	p := NewPublisher("ok", sink)
	for i := 0; i < 5; i++ {
		if err := p.Publish(context.Background(), domain.Event{}); err != nil {
			t.Fatal(err)
		}
	}
	if sink.calls != 5 {
		t.Errorf("calls = %d", sink.calls)
	}
}
