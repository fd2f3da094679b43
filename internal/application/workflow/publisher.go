package workflow

import (
	"context"

	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
	"github.com/garyjia/fieldops/pkg/utils"
)

// Publisher runs the post-commit side effects of a workflow change.
// Broadcast failures are returned as warnings; dispatcher subscribers run
// asynchronously and only log.
type Publisher struct {
	broadcaster port.Broadcaster
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewPublisher creates a publisher. Either collaborator may be nil.
func NewPublisher(broadcaster port.Broadcaster, d dispatcher.Dispatcher, logger Logger) *Publisher {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Publisher{broadcaster: broadcaster, dispatcher: d, logger: logger}
}

// NewEvent builds an event attributed to the scope's actor and correlated
// with the current request
func NewEvent(ctx context.Context, scope entity.Scope, t event.Type, entityID int64, payload map[string]interface{}) *event.Event {
	evt := event.NewEventWithCorrelation(t, scope.TenantID, entityID, payload, utils.RequestIDFromContext(ctx))
	return evt.WithActor(scope.ActorID)
}

// Publish must only be called after the change has been committed
func (p *Publisher) Publish(ctx context.Context, events ...*event.Event) []string {
	if p == nil {
		return nil
	}

	var warnings []string
	for _, evt := range events {
		if p.broadcaster != nil {
			if err := p.broadcaster.Broadcast(ctx, evt.Type.String(), evt, evt.TenantID); err != nil {
				p.logger.Warn("Broadcast failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"tenant_id", evt.TenantID,
					"error", err,
				)
				if len(warnings) == 0 {
					warnings = append(warnings, WarningBroadcastFailed)
				}
			}
		}
		if p.dispatcher != nil {
			p.dispatcher.DispatchAsync(ctx, evt)
		}
	}
	return warnings
}
