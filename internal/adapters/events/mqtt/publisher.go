package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
)

const publishTimeout = 5 * time.Second

// Publisher mirrors benchmark events onto MQTT topics for dashboards:
//
//	{prefix}/{dataset}/{event type}
type Publisher struct {
	client mqtt.Client
	prefix string
}

// NewPublisher connects to the broker
func NewPublisher(brokerURL, prefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("picpic-bench-%d", time.Now().UnixNano()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	logger.Info("Connected to MQTT broker", "broker", brokerURL)
	return NewPublisherWithClient(client, prefix), nil
}

func NewPublisherWithClient(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "picpic/bench"
	}
	return &Publisher{client: client, prefix: prefix}
}

// Topic returns the topic an event is published on.
func (p *Publisher) Topic(ev domain.Event) string {
	dataset := ev.Dataset
	if dataset == "" {
		dataset = "_"
	}
	return fmt.Sprintf("%s/%s/%s", p.prefix, dataset, ev.Type)
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// reports are retained so late subscribers see the last one
	retained := ev.Type == domain.EventReportReady
	token := p.client.Publish(p.Topic(ev), 0, retained, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish to %s timed out", p.Topic(ev))
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
