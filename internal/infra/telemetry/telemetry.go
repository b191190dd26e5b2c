package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics counts notifications delivered to each event sink and tracks live subscribers.
type EventMetrics struct {
	published   *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewEventMetrics registers the event collectors with reg, reusing collectors that already exist.
func NewEventMetrics(reg prometheus.Registerer) (*EventMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cad",
		Name:      "events_published_total",
		Help:      "Total number of notification events partitioned by kind, sink, and result.",
	}, []string{"kind", "sink", "result"})

	if err := reg.Register(published); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register events collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing events collector has unexpected type %T", already.ExistingCollector)
		}
		published = existing
	}

	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cad",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Current number of connected realtime subscribers.",
	})

	if err := reg.Register(subscribers); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register subscribers collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, fmt.Errorf("existing subscribers collector has unexpected type %T", already.ExistingCollector)
		}
		subscribers = existing
	}

	return &EventMetrics{published: published, subscribers: subscribers}, nil
}

// ObservePublish records one delivery attempt. Safe on a nil receiver.
func (m *EventMetrics) ObservePublish(kind, sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(kind, sink, result).Inc()
}

// SubscriberConnected increments the live subscriber gauge.
func (m *EventMetrics) SubscriberConnected() {
	if m != nil {
		m.subscribers.Inc()
	}
}

// SubscriberDisconnected decrements the live subscriber gauge.
func (m *EventMetrics) SubscriberDisconnected() {
	if m != nil {
		m.subscribers.Dec()
	}
}

// Published exposes the counter for assertions.
func (m *EventMetrics) Published() *prometheus.CounterVec {
	return m.published
}

// Subscribers exposes the gauge for assertions.
func (m *EventMetrics) Subscribers() prometheus.Gauge {
	return m.subscribers
}
