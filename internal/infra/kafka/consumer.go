package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/config"
)

var errNilMessage = errors.New("nil kafka message")

// RelayConsumer broadcasts events relayed by other instances to local subscribers.
type RelayConsumer struct {
	sink       port.EventSink
	instanceID string
	logger     *zap.Logger
}

func NewRelayConsumer(sink port.EventSink, instanceID string, logger *zap.Logger) *RelayConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayConsumer{sink: sink, instanceID: instanceID, logger: logger}
}

// HandleMessage broadcasts one record. Records this instance produced were
// already delivered locally and are skipped before decoding.
func (c *RelayConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return errNilMessage
	}

	headers := consumedHeaders(msg)
	if c.instanceID != "" && headers.Get(headerInstance) == c.instanceID {
		return nil
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, &headers)
	_, span := otel.Tracer("cad/kafka").Start(ctx, "relay "+headers.Get(headerKind),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		))
	defer span.End()

	var rec record
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode relay record: %w", err)
	}
	if rec.Version != recordVersion {
		c.logger.Warn("skipping relay record with unsupported version",
			zap.Int("version", rec.Version),
			zap.String("event_id", rec.ID))
		return nil
	}
	if !domain.KnownEventKind(rec.Kind) {
		c.logger.Warn("skipping relay record with unknown kind",
			zap.String("kind", string(rec.Kind)),
			zap.String("event_id", rec.ID))
		return nil
	}

	c.sink.Broadcast(domain.Event{
		ID:         rec.ID,
		Kind:       rec.Kind,
		ActorID:    rec.ActorID,
		OccurredAt: rec.OccurredAt,
		Payload:    rec.Payload,
	})
	return nil
}

func (c *RelayConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *RelayConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *RelayConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(ctx, msg); err != nil {
				c.logger.Warn("relay record dropped",
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
			// Undecodable records are marked too; retrying them cannot succeed.
			session.MarkMessage(msg, "")
		}
	}
}

// GroupRunner keeps a consumer group session alive on the events topic.
type GroupRunner struct {
	group   sarama.ConsumerGroup
	topic   string
	handler sarama.ConsumerGroupHandler
	logger  *zap.Logger
	backoff time.Duration
}

// NewGroupRunner joins "<consumer_group>-<instanceID>". Each instance owns a
// group so it receives every record, starting from the newest offset.
func NewGroupRunner(cfg config.KafkaSettings, instanceID string, handler sarama.ConsumerGroupHandler, logger *zap.Logger) (*GroupRunner, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0
	sc.ClientID = "cad-api"
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	groupID := cfg.ConsumerGroup
	if instanceID != "" {
		groupID += "-" + instanceID
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, sc)
	if err != nil {
		return nil, fmt.Errorf("join kafka group %s: %w", groupID, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("kafka relay consumer joined", zap.String("group", groupID))

	return &GroupRunner{
		group:   group,
		topic:   EventsTopic(cfg.TopicPrefix),
		handler: handler,
		logger:  logger,
		backoff: time.Second,
	}, nil
}

// Run blocks until ctx is done or the group is closed, rejoining after rebalances.
func (r *GroupRunner) Run(ctx context.Context) {
	go func() {
		for err := range r.group.Errors() {
			r.logger.Warn("kafka consumer error", zap.Error(err))
		}
	}()

	topics := []string{r.topic}
	for ctx.Err() == nil {
		err := r.group.Consume(ctx, topics, r.handler)
		switch {
		case err == nil:
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return
		default:
			r.logger.Error("kafka consume failed", zap.Error(err))
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *GroupRunner) Close() error {
	if err := r.group.Close(); err != nil {
		return fmt.Errorf("leave kafka group: %w", err)
	}
	return nil
}
