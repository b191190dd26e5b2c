package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

const (
	headerInstance = "cad-instance"
	headerKind     = "cad-kind"
	recordVersion  = 1
)

// record is the JSON body of a relayed event.
type record struct {
	Version    int              `json:"v"`
	ID         string           `json:"id"`
	Kind       domain.EventKind `json:"kind"`
	ActorID    string           `json:"actor_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
	Payload    json.RawMessage  `json:"payload"`
}

// RelayPublisher forwards committed events to the other API instances.
type RelayPublisher struct {
	producer   *Producer
	instanceID string
	logger     *zap.Logger
}

func NewRelayPublisher(producer *Producer, instanceID string, logger *zap.Logger) *RelayPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayPublisher{producer: producer, instanceID: instanceID, logger: logger}
}

// Publish encodes event and queues it. The trace context of ctx travels in
// the record headers.
func (p *RelayPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := p.encode(ctx, event)
	if err != nil {
		return err
	}
	return p.producer.Send(ctx, msg)
}

func (p *RelayPublisher) encode(ctx context.Context, event domain.Event) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.Kind, err)
	}

	rec := record{
		Version:    recordVersion,
		ID:         event.ID,
		Kind:       event.Kind,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
		Payload:    payload,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", event.Kind, err)
	}

	headers := headerCarrier{
		{Key: []byte(headerInstance), Value: []byte(p.instanceID)},
		{Key: []byte(headerKind), Value: []byte(event.Kind)},
	}
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	return &sarama.ProducerMessage{
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}, nil
}

var _ port.EventNotifier = (*RelayPublisher)(nil)

// headerCarrier adapts record headers to propagation.TextMapCarrier.
type headerCarrier []sarama.RecordHeader

func (h *headerCarrier) Get(key string) string {
	for _, hdr := range *h {
		if string(hdr.Key) == key {
			return string(hdr.Value)
		}
	}
	return ""
}

func (h *headerCarrier) Set(key, value string) {
	for i, hdr := range *h {
		if string(hdr.Key) == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (h *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*h))
	for _, hdr := range *h {
		keys = append(keys, string(hdr.Key))
	}
	return keys
}

// consumedHeaders copies the pointer headers of a consumed message.
func consumedHeaders(msg *sarama.ConsumerMessage) headerCarrier {
	out := make(headerCarrier, 0, len(msg.Headers))
	for _, hdr := range msg.Headers {
		if hdr != nil {
			out = append(out, *hdr)
		}
	}
	return out
}
