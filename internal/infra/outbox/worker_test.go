package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClaimer struct {
	queue  []*EventDocument
	sent   []string
	failed []string
	next   []time.Time
}

func (f *fakeClaimer) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	doc := f.queue[0]
	f.queue = f.queue[1:]
	return doc, nil
}

func (f *fakeClaimer) MarkSent(ctx context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeClaimer) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	f.failed = append(f.failed, id)
	f.next = append(f.next, next)
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	err  error
	msgs []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func bookingDoc(id string) *EventDocument {
	return &EventDocument{
		ID:         id,
		Name:       "booking.created",
		Payload:    []byte(`{"bookingId":"bk-1"}`),
		OccurredAt: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	store := &fakeClaimer{queue: []*EventDocument{bookingDoc("ev-1")}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "rc.", ID: "w1"}

	require.NoError(t, w.drain(context.Background()))

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	assert.Equal(t, "rc.booking.events.v1", msg.topic)
	assert.Equal(t, "bk-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", msg.headers["traceparent"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.payload, &env))
	assert.Equal(t, "1.0", env.SpecVersion)
	assert.Equal(t, "ev-1", env.ID)
	assert.Equal(t, "booking.created.v1", env.Type)
	assert.Equal(t, "booking.created", env.EventName())
	assert.Equal(t, "app://rentcar", env.Source)
	assert.JSONEq(t, `{"bookingId":"bk-1"}`, string(env.Data))
	assert.Equal(t, []string{"ev-1"}, store.sent)
}

func TestWorkerSchedulesRetryOnPublishFailure(t *testing.T) {
	doc := bookingDoc("ev-2")
	doc.Attempts = 1
	store := &fakeClaimer{queue: []*EventDocument{doc}}
	w := &Worker{
		Store:    store,
		Producer: &fakeProducer{err: errors.New("broker down")},
		Backoff:  []time.Duration{time.Second, time.Minute},
	}

	before := time.Now()
	require.NoError(t, w.drain(context.Background()))

	assert.Empty(t, store.sent)
	require.Equal(t, []string{"ev-2"}, store.failed)
	assert.WithinDuration(t, before.Add(time.Minute), store.next[0], 5*time.Second)
}

func TestWorkerRejectsInvalidPayload(t *testing.T) {
	doc := bookingDoc("ev-3")
	doc.Payload = []byte("not json")
	store := &fakeClaimer{queue: []*EventDocument{doc}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer}

	require.NoError(t, w.drain(context.Background()))

	assert.Empty(t, producer.msgs)
	assert.Equal(t, []string{"ev-3"}, store.failed)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "booking.events.v1", TopicFor("", "booking.paid"))
	assert.Equal(t, "dev.user.events.v1", TopicFor("dev.", "user"))
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}
