package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/spiderlily190/cad/internal/core/domain"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose()                               { close(f.errors) }
func (f *fakeAsyncProducer) Close() error                              { close(f.errors); return nil }
func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage     { return f.input }
func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }
func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError      { return f.errors }
func (f *fakeAsyncProducer) IsTransactional() bool                     { return false }
func (f *fakeAsyncProducer) BeginTxn() error                           { return nil }
func (f *fakeAsyncProducer) CommitTxn() error                          { return nil }
func (f *fakeAsyncProducer) AbortTxn() error                           { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return 0 }

type recordingSink struct {
	events []domain.Event
}

func (s *recordingSink) Broadcast(event domain.Event) {
	s.events = append(s.events, event)
}

func publishOne(t *testing.T, ctx context.Context, instanceID string, event domain.Event) *sarama.ProducerMessage {
	t.Helper()

	async := newFakeAsyncProducer()
	publisher := NewRelayPublisher(newProducer(async, EventsTopic("cad"), zaptest.NewLogger(t)), instanceID, zaptest.NewLogger(t))
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-async.input:
		return msg
	case <-time.After(time.Second):
		t.Fatal("nothing queued on the producer")
		return nil
	}
}

// asConsumed turns a queued record into what a consumer would receive.
func asConsumed(t *testing.T, msg *sarama.ProducerMessage) *sarama.ConsumerMessage {
	t.Helper()

	value, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}
	consumed := &sarama.ConsumerMessage{Topic: msg.Topic, Value: value}
	for i := range msg.Headers {
		consumed.Headers = append(consumed.Headers, &msg.Headers[i])
	}
	return consumed
}

func TestEventsTopic(t *testing.T) {
	if got := EventsTopic("cad"); got != "cad.events" {
		t.Fatalf("unexpected topic %q", got)
	}
	if got := EventsTopic(""); got != "events" {
		t.Fatalf("unexpected unprefixed topic %q", got)
	}
}

func TestRelayPublisherEncodesRecord(t *testing.T) {
	raisedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	status := "status-panic"

	msg := publishOne(t, context.Background(), "instance-a", domain.Event{
		ID:         "event-123",
		Kind:       domain.EventPanicRaised,
		ActorID:    "user-789",
		OccurredAt: raisedAt,
		Payload: domain.UnitPayload{
			UnitID:   "officer-1",
			UnitType: domain.UnitTypeOfficer,
			Callsign: "1A-12",
			StatusID: &status,
		},
	})

	if msg.Topic != "cad.events" {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if key, _ := msg.Key.Encode(); string(key) != relayKey {
		t.Fatalf("expected the shared relay key, got %q", key)
	}

	headers := headerCarrier(msg.Headers)
	if headers.Get(headerInstance) != "instance-a" || headers.Get(headerKind) != string(domain.EventPanicRaised) {
		t.Fatalf("unexpected headers %v", headers.Keys())
	}

	body, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}
	var rec struct {
		Version    int            `json:"v"`
		ID         string         `json:"id"`
		Kind       string         `json:"kind"`
		ActorID    string         `json:"actor_id"`
		OccurredAt string         `json:"occurred_at"`
		Payload    map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Version != recordVersion || rec.ID != "event-123" || rec.Kind != "panic.raised" || rec.ActorID != "user-789" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.OccurredAt != raisedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected occurred_at %q", rec.OccurredAt)
	}
	if rec.Payload["unit_id"] != "officer-1" || rec.Payload["status_id"] != status {
		t.Fatalf("unexpected payload %v", rec.Payload)
	}
}

func TestRelayPublisherFillsMissingIdentity(t *testing.T) {
	msg := publishOne(t, context.Background(), "instance-a", domain.Event{Kind: domain.EventBleetCreated})

	body, _ := msg.Value.Encode()
	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.ID == "" || rec.OccurredAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", rec)
	}
}

func TestRelayPublisherCarriesTraceContext(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	msg := publishOne(t, ctx, "instance-a", domain.Event{ID: "e", Kind: domain.EventAopUpdated})
	headers := headerCarrier(msg.Headers)
	if got := headers.Get("traceparent"); got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected traceparent %q", got)
	}
}

func TestSendRespectsCancelledContext(t *testing.T) {
	async := newFakeAsyncProducer()
	async.input <- &sarama.ProducerMessage{}
	producer := newProducer(async, "cad.events", zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := producer.Send(ctx, &sarama.ProducerMessage{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProducerCountsDeliveryFailures(t *testing.T) {
	async := newFakeAsyncProducer()
	producer := newProducer(async, "cad.events", zaptest.NewLogger(t))
	if err := producer.WithMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatalf("WithMetrics: %v", err)
	}

	async.errors <- &sarama.ProducerError{
		Msg: &sarama.ProducerMessage{Topic: "cad.events"},
		Err: sarama.ErrOutOfBrokers,
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := testutil.ToFloat64(producer.failures); got != 1 {
		t.Fatalf("expected one failure counted, got %v", got)
	}
}

func TestRelayConsumerSkipsOwnRecords(t *testing.T) {
	aop := "Sandy Shores"
	msg := asConsumed(t, publishOne(t, context.Background(), "instance-a", domain.Event{
		ID:      "event-1",
		Kind:    domain.EventAopUpdated,
		ActorID: "user-1",
		Payload: domain.AopUpdatedPayload{AreaOfPlay: &aop},
	}))

	sink := &recordingSink{}
	own := NewRelayConsumer(sink, "instance-a", zaptest.NewLogger(t))
	if err := own.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected own record to be skipped, got %d", len(sink.events))
	}

	other := NewRelayConsumer(sink, "instance-b", zaptest.NewLogger(t))
	if err := other.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 relayed event, got %d", len(sink.events))
	}

	relayed := sink.events[0]
	if relayed.ID != "event-1" || relayed.Kind != domain.EventAopUpdated || relayed.ActorID != "user-1" {
		t.Fatalf("unexpected relayed event %+v", relayed)
	}

	raw, err := json.Marshal(relayed.Payload)
	if err != nil {
		t.Fatalf("marshal relayed payload: %v", err)
	}
	var payload domain.AopUpdatedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal relayed payload: %v", err)
	}
	if payload.AreaOfPlay == nil || *payload.AreaOfPlay != aop {
		t.Fatalf("payload did not survive the relay: %s", raw)
	}
}

func TestRelayConsumerDropsUnusableRecords(t *testing.T) {
	sink := &recordingSink{}
	consumer := NewRelayConsumer(sink, "instance-b", zaptest.NewLogger(t))
	ctx := context.Background()

	if err := consumer.HandleMessage(ctx, nil); !errors.Is(err, errNilMessage) {
		t.Fatalf("expected errNilMessage, got %v", err)
	}
	if err := consumer.HandleMessage(ctx, &sarama.ConsumerMessage{Value: []byte("{")}); err == nil {
		t.Fatal("expected a decode error")
	}

	for _, body := range []string{
		`{"v":1,"id":"x","kind":"user.registered","payload":{}}`,
		`{"v":2,"id":"y","kind":"aop.updated","payload":{}}`,
	} {
		if err := consumer.HandleMessage(ctx, &sarama.ConsumerMessage{Value: []byte(body)}); err != nil {
			t.Fatalf("unexpected error for %s: %v", body, err)
		}
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected nothing broadcast, got %+v", sink.events)
	}
}
