package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/config"
)

// relayKey pins every record to one partition so subscribers on other
// instances observe events in commit order.
const relayKey = "cad-relay"

// EventsTopic is the single topic carrying CAD events between instances.
func EventsTopic(prefix string) string {
	if prefix == "" {
		return "events"
	}
	return prefix + ".events"
}

// Producer is a thin lifecycle wrapper over a sarama.AsyncProducer bound to
// the events topic. Delivery failures are logged and counted, never returned.
type Producer struct {
	async  sarama.AsyncProducer
	topic  string
	logger *zap.Logger

	failures prometheus.Counter
	drained  sync.WaitGroup
}

func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0
	sc.ClientID = "cad-api"
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Flush.Frequency = 50 * time.Millisecond
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Errors = true
	sc.Metadata.Retry.Backoff = 250 * time.Millisecond

	async, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := newProducer(async, EventsTopic(cfg.TopicPrefix), logger)
	p.logger.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", p.topic))
	return p, nil
}

func newProducer(async sarama.AsyncProducer, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{async: async, topic: topic, logger: logger}
	p.drained.Add(1)
	go p.drain()
	return p
}

// WithMetrics counts failed deliveries as cad_kafka_delivery_failures_total.
func (p *Producer) WithMetrics(reg prometheus.Registerer) error {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cad",
		Subsystem: "kafka",
		Name:      "delivery_failures_total",
		Help:      "Relay records the broker did not accept.",
	})
	if err := reg.Register(counter); err != nil {
		return fmt.Errorf("register kafka metrics: %w", err)
	}
	p.failures = counter
	return nil
}

func (p *Producer) drain() {
	defer p.drained.Done()
	for perr := range p.async.Errors() {
		if perr == nil {
			continue
		}
		if p.failures != nil {
			p.failures.Inc()
		}
		p.logger.Error("kafka delivery failed",
			zap.String("topic", perr.Msg.Topic),
			zap.Error(perr.Err))
	}
}

// Topic returns the topic records are sent to.
func (p *Producer) Topic() string {
	return p.topic
}

// Send queues msg on the events topic. It blocks only while the producer's
// input buffer is full.
func (p *Producer) Send(ctx context.Context, msg *sarama.ProducerMessage) error {
	msg.Topic = p.topic
	if msg.Key == nil {
		msg.Key = sarama.StringEncoder(relayKey)
	}

	select {
	case p.async.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered records and waits for the error drain to finish.
func (p *Producer) Close() error {
	err := p.async.Close()
	p.drained.Wait()
	if err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
