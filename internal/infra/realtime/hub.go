package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/telemetry"
)

const defaultClientBuffer = 64

// Message is the wire shape pushed to subscribers.
type Message struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Options tunes the hub.
type Options struct {
	ClientBuffer int
	PingInterval time.Duration
	WriteTimeout time.Duration
	Metrics      *telemetry.EventMetrics
}

// Hub fans committed events out to connected subscribers. Subscribers that
// cannot keep up are dropped rather than slowing the publisher down.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	opts   Options
	logger *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = defaultClientBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Hub{subs: make(map[*Subscription]struct{}), opts: opts, logger: logger}
}

// Subscription receives encoded messages for the kinds it asked for.
type Subscription struct {
	hub    *Hub
	userID string
	kinds  map[domain.EventKind]struct{}
	send   chan []byte
	once   sync.Once
}

// C delivers encoded messages. It is closed when the subscription ends.
func (s *Subscription) C() <-chan []byte {
	return s.send
}

// Wants reports whether the subscription accepts kind. An empty filter accepts everything.
func (s *Subscription) Wants(kind domain.EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Subscribe registers a new subscriber filtered by kinds.
func (h *Hub) Subscribe(userID string, kinds []domain.EventKind) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		kinds:  make(map[domain.EventKind]struct{}, len(kinds)),
		send:   make(chan []byte, h.opts.ClientBuffer),
	}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	h.opts.Metrics.SubscriberConnected()
	h.logger.Debug("Realtime subscriber connected", zap.String("user_id", userID), zap.Int("kinds", len(kinds)))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.once.Do(func() { close(sub.send) })
	h.opts.Metrics.SubscriberDisconnected()
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish implements port.EventNotifier for the local instance.
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	h.Broadcast(event)
	return nil
}

// Broadcast delivers event to every interested subscriber without blocking.
func (h *Hub) Broadcast(event domain.Event) {
	encoded, err := json.Marshal(Message{
		ID:         event.ID,
		Kind:       string(event.Kind),
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
		Payload:    event.Payload,
	})
	if err != nil {
		h.logger.Warn("Encode realtime message failed", zap.String("kind", string(event.Kind)), zap.Error(err))
		return
	}

	var slow []*Subscription

	h.mu.RLock()
	for sub := range h.subs {
		if !sub.Wants(event.Kind) {
			continue
		}
		select {
		case sub.send <- encoded:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("Dropping slow realtime subscriber", zap.String("user_id", sub.userID))
		h.remove(sub)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}

var (
	_ port.EventNotifier = (*Hub)(nil)
	_ port.EventSink     = (*Hub)(nil)
)
