// Package events holds the benchmark event sinks.
package events

import (
	"context"
	"errors"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/ports"
)

// Fanout delivers every event to each sink. One failing sink does not stop the others.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
