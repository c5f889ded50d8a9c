package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
)

const EventChannel = "bench:events"

// Publisher fans benchmark events out over Redis pub/sub so a separate report server
// can relay them to its websocket clients.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(url string) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Publisher{client: redis.NewClient(opts)}, nil
}

// NewPublisherFromClient wraps an existing client; Close closes it.
func NewPublisherFromClient(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Client() *redis.Client {
	return p.client
}

func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, EventChannel, data).Err()
}

// Subscribe returns events until ctx is done. Undecodable payloads are dropped.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	pubsub := p.client.Subscribe(ctx, EventChannel)
	// wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", EventChannel, err)
	}
	ch := make(chan domain.Event)

	go func() {
		defer pubsub.Close()
		defer close(ch)

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warn("Dropping malformed event", "error", err)
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
