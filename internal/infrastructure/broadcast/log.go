package broadcast

import (
	"context"

	"go.uber.org/zap"
)

// LogBroadcaster stands in for NATS when realtime delivery is disabled
type LogBroadcaster struct {
	logger *zap.Logger
}

// NewLogBroadcaster creates a broadcaster that only logs
func NewLogBroadcaster(logger *zap.Logger) *LogBroadcaster {
	return &LogBroadcaster{logger: logger}
}

// Broadcast implements port.Broadcaster
func (b *LogBroadcaster) Broadcast(ctx context.Context, eventName string, payload interface{}, tenantID int64) error {
	b.logger.Debug("Broadcast skipped, NATS disabled",
		zap.String("event", eventName),
		zap.Int64("tenant_id", tenantID))
	return ctx.Err()
}
