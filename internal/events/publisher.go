// Package events publishes lobby and battle events to downstream consumers
// (leaderboards, analytics) over NATS. Publishing is best effort: the lobby
// never waits on or fails because of the feed.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event is the JSON body of every published message
type Event struct {
	Type       domain.MessageType `json:"type"`
	ServerID   string             `json:"server_id"`
	UserID     int                `json:"user_id"`
	Payload    any                `json:"payload,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Publisher sends lobby events to an external feed
type Publisher interface {
	Publish(serverID string, t domain.MessageType, userID int, payload any) error
	Close()
}

// NopPublisher drops every event. Used when no feed is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, domain.MessageType, int, any) error { return nil }
func (NopPublisher) Close()                                             {}

// natsConn is the subset of *nats.Conn the publisher needs
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// drainTimeout bounds how long Close waits for buffered events to flush
const drainTimeout = 5 * time.Second

// NATSPublisher publishes events as core NATS messages on
// <prefix>.<server_id>.<type>
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger *zap.Logger
	now    func() time.Time

	// closed is signalled once the connection has finished draining.
	// Nil means Close does not wait.
	closed       <-chan struct{}
	drainTimeout time.Duration
}

// NewNATSPublisher connects to url and returns a publisher
func NewNATSPublisher(url, prefix, clientName string, logger *zap.Logger) (*NATSPublisher, error) {
	closed := make(chan struct{})
	var once sync.Once

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("event feed disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("event feed reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			once.Do(func() { close(closed) })
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	p := newNATSPublisher(conn, prefix, logger)
	p.closed = closed
	return p, nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:         conn,
		prefix:       prefix,
		logger:       logger,
		now:          time.Now,
		drainTimeout: drainTimeout,
	}
}

// Subject returns the subject an event type is published on
func Subject(prefix, serverID string, t domain.MessageType) string {
	return fmt.Sprintf("%s.%s.%s", prefix, serverID, t)
}

// Publish encodes and sends one event
func (p *NATSPublisher) Publish(serverID string, t domain.MessageType, userID int, payload any) error {
	data, err := json.Marshal(Event{
		Type:       t,
		ServerID:   serverID,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", t, err)
	}

	subject := Subject(p.prefix, serverID, t)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending events and closes the connection. Drain is
// asynchronous, so it waits for the connection to report closed, up to
// drainTimeout.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("drain event feed", zap.Error(err))
		p.conn.Close()
		return
	}
	if p.closed == nil {
		return
	}

	select {
	case <-p.closed:
	case <-time.After(p.drainTimeout):
		p.logger.Warn("event feed drain timed out", zap.Duration("timeout", p.drainTimeout))
		p.conn.Close()
	}
}
