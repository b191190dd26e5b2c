package realtime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/telemetry"
)

// Sink is a named notifier so delivery metrics can tell destinations apart.
type Sink struct {
	Name     string
	Notifier port.EventNotifier
}

// FanoutNotifier publishes every event to all sinks, continuing past failures.
type FanoutNotifier struct {
	sinks   []Sink
	metrics *telemetry.EventMetrics
	logger  *zap.Logger
}

// NewFanoutNotifier constructs a notifier over sinks. Sinks with a nil notifier are skipped.
func NewFanoutNotifier(metrics *telemetry.EventMetrics, logger *zap.Logger, sinks ...Sink) *FanoutNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Notifier != nil {
			kept = append(kept, s)
		}
	}
	return &FanoutNotifier{sinks: kept, metrics: metrics, logger: logger}
}

// Publish returns the joined errors of the sinks that failed.
func (f *FanoutNotifier) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Notifier.Publish(ctx, event)
		f.metrics.ObservePublish(string(event.Kind), s.Name, err)
		if err != nil {
			f.logger.Debug("Sink publish failed",
				zap.String("sink", s.Name),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ port.EventNotifier = (*FanoutNotifier)(nil)
