package events

import (
	"context"
	"errors"
	"testing"

	"picpic.bench/internal/core/domain"
)

type sink struct {
	err    error
	got    int
	closed bool
}

func (s *sink) Publish(context.Context, domain.Event) error {
	s.got++
	return s.err
}

func (s *sink) Close() error {
	s.closed = true
	return s.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("broker down")
	a, b, c := &sink{}, &sink{err: boom}, &sink{}
	f := Fanout{a, b, c}

	err := f.Publish(context.Background(), domain.Event{Type: domain.EventMeasurement})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if a.got != 1 || b.got != 1 || c.got != 1 {
		t.Errorf("deliveries: %d %d %d", a.got, b.got, c.got)
	}

	if err := f.Close(); !errors.Is(err, boom) {
		t.Errorf("close error = %v", err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("every sink should be closed")
	}

	if err := (Fanout{}).Publish(context.Background(), domain.Event{}); err != nil {
		t.Errorf("empty fanout: %v", err)
	}
}
