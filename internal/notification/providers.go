package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix is the NATS subject namespace for per-user notifications
const SubjectPrefix = "notifications.user"

// NATSConfig holds NATS provider configuration
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns a config for url with sensible defaults.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "citypd-notifications",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSProvider pushes notifications to subscribers of the recipient's subject
type NATSProvider struct {
	conn *nats.Conn
}

// NewNATSProvider connects to NATS
func NewNATSProvider(cfg NATSConfig, logger *zap.Logger) (*NATSProvider, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSProvider{conn: conn}, nil
}

// Send publishes the notification as JSON
func (p *NATSProvider) Send(ctx context.Context, notification *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return p.conn.Publish(Subject(notification), data)
}

// Close drains and closes the connection
func (p *NATSProvider) Close() error {
	return p.conn.Drain()
}

// Subject returns the NATS subject a notification is published on.
func Subject(n *Notification) string {
	return SubjectPrefix + "." + n.Recipient.String()
}
