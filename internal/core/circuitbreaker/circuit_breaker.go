package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a new circuit breaker with default settings
func New(name string) *CircuitBreaker {
	return NewWithTimeout(name, 30*time.Second)
}

// NewWithTimeout sets how long the breaker stays open before probing again.
func NewWithTimeout(name string, openTimeout time.Duration) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 60,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs the function with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}

	return err
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// Publisher guards an event sink so a dead broker costs one fast failure per event
// instead of a network timeout per event.
type Publisher struct {
	inner ports.EventPublisher
	cb    *CircuitBreaker
}

func NewPublisher(name string, inner ports.EventPublisher) *Publisher {
	return &Publisher{inner: inner, cb: New(name)}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	return p.cb.Execute(ctx, func() error {
		return p.inner.Publish(ctx, ev)
	})
}

func (p *Publisher) Close() error {
	return p.inner.Close()
}

func (p *Publisher) State() gobreaker.State {
	return p.cb.State()
}
