package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"picpic.bench/internal/core/domain"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient implements only what Publisher uses; other methods panic via the nil embed.
type fakeClient struct {
	mqtt.Client
	err          error
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestPublisher_TopicsAndPayload(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisherWithClient(fc, "lab/bench")

	events := []domain.Event{
		{Type: domain.EventMeasurement, Dataset: "images_100", RunID: "r1"},
		{Type: domain.EventReportReady, Dataset: "images_100", RunID: "r1"},
		{Type: domain.EventDatasetSkipped, RunID: "r1"},
	}
	for _, ev := range events {
		if err := p.Publish(context.Background(), ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	want := []struct {
		topic    string
		retained bool
	}{
		{"lab/bench/images_100/measurement", false},
		{"lab/bench/images_100/report_ready", true},
		{"lab/bench/_/dataset_skipped", false},
	}
	if len(fc.sent) != len(want) {
		t.Fatalf("sent %d messages", len(fc.sent))
	}
	for i, w := range want {
		if fc.sent[i].topic != w.topic || fc.sent[i].retained != w.retained {
			t.Errorf("message %d: got %s retained=%v, want %s retained=%v", i, fc.sent[i].topic, fc.sent[i].retained, w.topic, w.retained)
		}
	}

	var decoded domain.Event
	if err := json.Unmarshal(fc.sent[0].payload, &decoded); err != nil || decoded.RunID != "r1" {
		t.Errorf("payload decode: %v %+v", err, decoded)
	}

	if err := p.Close(); err != nil || !fc.disconnected {
		t.Error("close should disconnect")
	}
}

func TestPublisher_PropagatesError(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	p := NewPublisherWithClient(fc, "")
	if err := p.Publish(context.Background(), domain.Event{Type: domain.EventMeasurement}); err == nil {
		t.Fatal("expected publish error")
	}
	if got := p.Topic(domain.Event{Type: domain.EventMeasurement, Dataset: "d"}); got != "picpic/bench/d/measurement" {
		t.Errorf("default prefix topic = %s", got)
	}
}
