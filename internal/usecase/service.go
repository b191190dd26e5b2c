package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// base carries what every resource service needs: storage, the event
// notifier and a logger for side-channel failures.
type base struct {
	store  port.Store
	events port.EventNotifier
	logger *zap.Logger
	now    func() time.Time
}

func newBase(store port.Store, events port.EventNotifier, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		store:  store,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (b *base) WithClock(clock func() time.Time) {
	if clock != nil {
		b.now = clock
	}
}

func (b *base) event(kind domain.EventKind, actor domain.Actor, payload any) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActorID:    actor.UserID,
		OccurredAt: b.now(),
		Payload:    payload,
	}
}

// notify publishes committed changes. A failed publish is logged and never
// reported to the caller: the mutation already happened.
func (b *base) notify(ctx context.Context, events ...domain.Event) {
	if b.events == nil {
		return
	}
	// The write is committed; a client hanging up must not drop the event.
	ctx = context.WithoutCancel(ctx)
	for _, event := range events {
		if err := b.events.Publish(ctx, event); err != nil {
			b.logger.Warn("publish event failed",
				zap.String("event_id", event.ID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
}

// reconcile rewrites relation for owner so it matches desired and returns the resulting set.
func reconcile(ctx context.Context, tx port.Store, relation domain.Relation, ownerID string, desired []string) ([]string, error) {
	current, err := tx.Relations().ListRelated(ctx, relation, ownerID)
	if err != nil {
		return nil, err
	}

	ops := domain.ReconcileRelations(current, desired)
	if len(ops) == 0 {
		return domain.ApplyRelationOps(current, nil), nil
	}

	if err := tx.Relations().ApplyRelationOps(ctx, relation, ownerID, ops); err != nil {
		return nil, err
	}
	return domain.ApplyRelationOps(current, ops), nil
}
