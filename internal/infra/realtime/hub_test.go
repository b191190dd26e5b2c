package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/infra/telemetry"
)

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case raw, ok := <-sub.C():
		if !ok {
			t.Fatalf("subscription closed")
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for message")
	}
	return Message{}
}

func TestHubFiltersByKind(t *testing.T) {
	hub := NewHub(Options{}, zaptest.NewLogger(t))
	all := hub.Subscribe("user-1", nil)
	panicOnly := hub.Subscribe("user-2", []domain.EventKind{domain.EventPanicRaised})

	hub.Broadcast(domain.Event{ID: "e1", Kind: domain.EventAopUpdated})
	hub.Broadcast(domain.Event{ID: "e2", Kind: domain.EventPanicRaised, Payload: domain.UnitPayload{UnitID: "officer-1"}})

	if got := receive(t, all); got.ID != "e1" {
		t.Fatalf("expected e1 first, got %s", got.ID)
	}
	if got := receive(t, all); got.ID != "e2" {
		t.Fatalf("expected e2 second, got %s", got.ID)
	}

	got := receive(t, panicOnly)
	if got.ID != "e2" || got.Kind != "panic.raised" {
		t.Fatalf("unexpected message %+v", got)
	}
	select {
	case raw := <-panicOnly.C():
		t.Fatalf("unexpected extra message %s", raw)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewEventMetrics(registry)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	hub := NewHub(Options{ClientBuffer: 1, Metrics: metrics}, zaptest.NewLogger(t))
	slow := hub.Subscribe("user-1", nil)
	if got := testutil.ToFloat64(metrics.Subscribers()); got != 1 {
		t.Fatalf("expected 1 subscriber, got %f", got)
	}

	hub.Broadcast(domain.Event{ID: "e1", Kind: domain.EventBleetCreated})
	hub.Broadcast(domain.Event{ID: "e2", Kind: domain.EventBleetCreated})

	if hub.Len() != 0 {
		t.Fatalf("expected slow subscriber to be removed")
	}
	if got := testutil.ToFloat64(metrics.Subscribers()); got != 0 {
		t.Fatalf("expected 0 subscribers, got %f", got)
	}

	if got := receive(t, slow); got.ID != "e1" {
		t.Fatalf("expected buffered e1, got %s", got.ID)
	}
	if _, ok := <-slow.C(); ok {
		t.Fatalf("expected channel to be closed")
	}

	// closing twice is harmless
	slow.Close()
}

func TestHubPublishImplementsNotifier(t *testing.T) {
	hub := NewHub(Options{}, zaptest.NewLogger(t))
	sub := hub.Subscribe("user-1", nil)
	defer sub.Close()

	if err := hub.Publish(context.Background(), domain.Event{ID: "e1", Kind: domain.EventSignal100Updated}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := receive(t, sub); got.Kind != "signal100.updated" {
		t.Fatalf("unexpected kind %s", got.Kind)
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("panic.raised, call911.created,,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != domain.EventPanicRaised || kinds[1] != domain.EventCall911Created {
		t.Fatalf("unexpected kinds %v", kinds)
	}

	if kinds, err := ParseKinds(""); err != nil || len(kinds) != 0 {
		t.Fatalf("expected empty filter, got %v %v", kinds, err)
	}

	if _, err := ParseKinds("user.registered"); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestServeStreamsEventsOverWebsocket(t *testing.T) {
	hub := NewHub(Options{PingInterval: time.Second}, zaptest.NewLogger(t))
	upgrader := &websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kinds, _ := ParseKinds(r.URL.Query().Get("kinds"))
		_ = hub.Serve(w, r, upgrader, "user-1", kinds)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?kinds=call911.created"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(domain.Event{ID: "skip", Kind: domain.EventAopUpdated})
	hub.Broadcast(domain.Event{ID: "c1", Kind: domain.EventCall911Created, Payload: domain.CallPayload{CallID: "call-1"}})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		ID      string             `json:"id"`
		Kind    string             `json:"kind"`
		Payload domain.CallPayload `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.ID != "c1" || msg.Payload.CallID != "call-1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline = time.Now().Add(time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Publish(context.Context, domain.Event) error { return f.err }

func TestFanoutNotifierJoinsErrorsAndCountsDeliveries(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewEventMetrics(registry)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	hub := NewHub(Options{}, zaptest.NewLogger(t))
	sub := hub.Subscribe("user-1", nil)
	defer sub.Close()

	brokerDown := errors.New("broker down")
	fanout := NewFanoutNotifier(metrics, zaptest.NewLogger(t),
		Sink{Name: "kafka", Notifier: failingNotifier{err: brokerDown}},
		Sink{Name: "realtime", Notifier: hub},
		Sink{Name: "disabled"},
	)

	err = fanout.Publish(context.Background(), domain.Event{ID: "e1", Kind: domain.EventPanicRaised})
	if !errors.Is(err, brokerDown) {
		t.Fatalf("expected joined broker error, got %v", err)
	}

	if got := receive(t, sub); got.ID != "e1" {
		t.Fatalf("expected hub delivery despite kafka failure, got %s", got.ID)
	}

	if got := testutil.ToFloat64(metrics.Published().WithLabelValues("panic.raised", "kafka", "error")); got != 1 {
		t.Fatalf("expected kafka error count 1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Published().WithLabelValues("panic.raised", "realtime", "ok")); got != 1 {
		t.Fatalf("expected realtime ok count 1, got %f", got)
	}
}
