package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventMetricsObservePublish(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewEventMetrics(registry)
	if err != nil {
		t.Fatalf("failed to create event metrics: %v", err)
	}

	metrics.ObservePublish("panic.raised", "realtime", nil)
	metrics.ObservePublish("panic.raised", "kafka", errors.New("broker down"))

	if got := testutil.ToFloat64(metrics.Published().WithLabelValues("panic.raised", "realtime", "ok")); got != 1 {
		t.Fatalf("expected ok counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Published().WithLabelValues("panic.raised", "kafka", "error")); got != 1 {
		t.Fatalf("expected error counter 1, got %f", got)
	}

	metrics.SubscriberConnected()
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()
	if got := testutil.ToFloat64(metrics.Subscribers()); got != 1 {
		t.Fatalf("expected 1 subscriber, got %f", got)
	}
}

func TestEventMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewEventMetrics(registry)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewEventMetrics(registry)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.Published() != second.Published() {
		t.Fatalf("expected the existing collector to be reused")
	}
}

func TestEventMetricsNilSafe(t *testing.T) {
	var metrics *EventMetrics
	metrics.ObservePublish("x", "y", nil)
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()
}
