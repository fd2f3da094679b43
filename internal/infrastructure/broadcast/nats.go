package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
)

// ErrNotConnected is returned while the NATS connection is down
var ErrNotConnected = errors.New("nats connection is not established")

// Config holds NATS connection settings
type Config struct {
	URL               string
	Name              string
	Username          string
	Password          string
	SubjectPrefix     string
	ReconnectInterval time.Duration
	MaxReconnects     int
}

// Publisher is the subset of *nats.Conn used for broadcasting
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the envelope clients receive on every subject
type Message struct {
	Event    string      `json:"event"`
	TenantID int64       `json:"tenantId"`
	Payload  interface{} `json:"payload"`
	SentAt   time.Time   `json:"sentAt"`
}

// NATSBroadcaster publishes realtime notifications to <prefix>.<tenant>.<event>
type NATSBroadcaster struct {
	conn   Publisher
	prefix string
	logger *zap.Logger
}

// Connect dials NATS with reconnect handling wired to the logger
func Connect(cfg Config, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}

// NewNATSBroadcaster creates a broadcaster publishing through conn
func NewNATSBroadcaster(conn Publisher, prefix string, logger *zap.Logger) *NATSBroadcaster {
	if prefix == "" {
		prefix = "fieldops"
	}
	return &NATSBroadcaster{
		conn:   conn,
		prefix: prefix,
		logger: logger,
	}
}

var _ port.Broadcaster = (*NATSBroadcaster)(nil)

// Subject returns the subject an event is published on
func (b *NATSBroadcaster) Subject(tenantID int64, eventName string) string {
	return fmt.Sprintf("%s.%d.%s", b.prefix, tenantID, eventName)
}

// Broadcast implements port.Broadcaster
func (b *NATSBroadcaster) Broadcast(ctx context.Context, eventName string, payload interface{}, tenantID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Ping(); err != nil {
		return err
	}

	data, err := json.Marshal(Message{
		Event:    eventName,
		TenantID: tenantID,
		Payload:  payload,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	subject := b.Subject(tenantID, eventName)
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Error("Failed to publish broadcast",
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	b.logger.Debug("Broadcast published",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)))
	return nil
}

// Ping reports whether the underlying connection can publish
func (b *NATSBroadcaster) Ping() error {
	if nc, ok := b.conn.(*nats.Conn); ok && !nc.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close drains the connection when it is a real NATS connection
func (b *NATSBroadcaster) Close() error {
	if nc, ok := b.conn.(*nats.Conn); ok {
		return nc.Drain()
	}
	return nil
}
