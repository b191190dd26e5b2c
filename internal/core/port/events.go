package port

import (
	"context"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// EventNotifier publishes domain events to connected clients and other instances.
type EventNotifier interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventSink receives events that arrive from outside the process.
type EventSink interface {
	Broadcast(event domain.Event)
}
