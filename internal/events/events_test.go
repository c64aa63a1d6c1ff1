package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

type recordingProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	fail    error
	flushed bool
	closed  bool
}

func (p *recordingProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	p.records = append(p.records, r)
	p.mu.Unlock()
	promise(r, p.fail)
}

func (p *recordingProducer) Flush(context.Context) error {
	p.flushed = true
	return nil
}

func (p *recordingProducer) Close() { p.closed = true }

func sampleEvent() Event {
	return Event{
		ID:        "e-1",
		Type:      EventTicketValidated,
		TicketID:  "t-1",
		Actor:     Actor{OperatorID: "op-1", Role: domain.OperatorRoleGate, GateID: "north"},
		Timestamp: time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC),
		Payload:   TicketValidatedPayload{Valid: false, Reason: domain.ReasonDuplicate, Method: domain.MethodOffline},
	}
}

func TestRecordEncoding(t *testing.T) {
	rec, err := Record("gate.admissions", sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "gate.admissions", rec.Topic)
	assert.Equal(t, []byte("t-1"), rec.Key)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "ticket_validated", string(rec.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "ticket_validated", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "DUPLICATE", payload["reason"])
	assert.Equal(t, "offline", payload["method"])
}

func TestKafkaSinkForwardsDispatchedEvents(t *testing.T) {
	prod := &recordingProducer{}
	sink := newKafkaSink(prod, "gate.admissions", nil)
	d := NewInMemoryDispatcher()
	sink.Register(d)

	require.NoError(t, d.Publish(context.Background(), sampleEvent()))
	issued := sampleEvent()
	issued.Type = EventTicketIssued
	require.NoError(t, d.Publish(context.Background(), issued))

	assert.Len(t, prod.records, 2)
	require.NoError(t, sink.Close(context.Background()))
	assert.True(t, prod.flushed)
	assert.True(t, prod.closed)
}

func TestKafkaSinkDeliveryFailureDoesNotFailPublish(t *testing.T) {
	prod := &recordingProducer{fail: errors.New("broker down")}
	sink := newKafkaSink(prod, "gate.admissions", nil)

	assert.NoError(t, sink.Handle(context.Background(), sampleEvent()))
	assert.Len(t, prod.records, 1)
}

func TestDispatcherJoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventTicketRevoked, func(context.Context, Event) error {
		calls++
		return errors.New("first")
	})
	d.Subscribe(EventTicketRevoked, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketRevoked})
	assert.EqualError(t, err, "first")
	assert.Equal(t, 2, calls)
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAdmitted}))
}
