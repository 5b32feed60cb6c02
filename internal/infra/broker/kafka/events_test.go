package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentcar/internal/app/outbox"
)

type recordingDispatcher struct {
	got []appoutbox.EventRecord
}

func (d *recordingDispatcher) HandleEvent(ctx context.Context, rec appoutbox.EventRecord) error {
	d.got = append(d.got, rec)
	return nil
}

const envelope = `{
	"specversion": "1.0",
	"id": "ev-1",
	"type": "booking.cancelled.v1",
	"source": "app://rentcar",
	"time": "2026-03-10T08:00:00Z",
	"datacontenttype": "application/json",
	"data": {"bookingId": "bk-9"}
}`

func TestEventHandlerDispatchesDecodedRecord(t *testing.T) {
	d := &recordingDispatcher{}
	msg := &sarama.ConsumerMessage{
		Key:     []byte("bk-9"),
		Value:   []byte(envelope),
		Headers: []*sarama.RecordHeader{{Key: []byte("traceparent"), Value: []byte("00-x-y-01")}},
	}

	require.NoError(t, EventHandler{Dispatcher: d}.Handle(context.Background(), msg))

	require.Len(t, d.got, 1)
	rec := d.got[0]
	assert.Equal(t, "ev-1", rec.ID)
	assert.Equal(t, "booking.cancelled", rec.Name)
	assert.Equal(t, "bk-9", rec.Aggregate)
	assert.Equal(t, "00-x-y-01", rec.Headers["traceparent"])
	assert.JSONEq(t, `{"bookingId":"bk-9"}`, string(rec.Payload))
}

func TestDecodeEnvelopeRejectsForeignMessages(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"hello":"world"}`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`garbage`))
	assert.Error(t, err)
}

type mapInbox map[string]bool

func (m mapInbox) Seen(ctx context.Context, id string) (bool, error) {
	if m[id] {
		return true, nil
	}
	m[id] = true
	return false, nil
}

func (m mapInbox) Forget(ctx context.Context, id string) error {
	delete(m, id)
	return nil
}

type failingDispatcher struct{}

func (failingDispatcher) HandleEvent(context.Context, appoutbox.EventRecord) error {
	return errors.New("smtp down")
}

func TestEventHandlerSkipsRedeliveredEvents(t *testing.T) {
	d := &recordingDispatcher{}
	h := EventHandler{Dispatcher: d, Inbox: mapInbox{}}
	msg := &sarama.ConsumerMessage{Key: []byte("bk-9"), Value: []byte(envelope)}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	assert.Len(t, d.got, 1)
}

func TestEventHandlerForgetsFailedEvents(t *testing.T) {
	inbox := mapInbox{}
	msg := &sarama.ConsumerMessage{Key: []byte("bk-9"), Value: []byte(envelope)}

	err := EventHandler{Dispatcher: failingDispatcher{}, Inbox: inbox}.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Empty(t, inbox)

	d := &recordingDispatcher{}
	require.NoError(t, EventHandler{Dispatcher: d, Inbox: inbox}.Handle(context.Background(), msg))
	assert.Len(t, d.got, 1)
}
