package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"json-decoding/internal/sink"
)

// conn is the part of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher publishes every encoded record as one NATS message
type Publisher struct {
	conn    conn
	subject string
	logger  *logrus.Logger

	pending  []byte
	prepared bool
	last     bool
}

var _ sink.Sink = (*Publisher)(nil)

// NewPublisher connects to NATS and creates a publisher for subject
func NewPublisher(url, subject string, maxReconnect int, reconnectWait time.Duration, logger *logrus.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("json-decoding"),
		nats.MaxReconnects(maxReconnect),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Warn("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Infof("Connected to NATS at %s", url)

	return newPublisher(nc, subject, logger), nil
}

func newPublisher(c conn, subject string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		conn:    c,
		subject: subject,
		logger:  logger,
	}
}

// PrepareWrite implements sink.Sink
func (p *Publisher) PrepareWrite(last bool) error {
	p.prepared = true
	p.last = last
	return nil
}

// Write implements sink.Sink. Bytes accumulate until a write prepared with
// last=true completes the message, which is then published.
func (p *Publisher) Write(data []byte) error {
	if !p.prepared {
		return sink.ErrNotPrepared
	}
	p.prepared = false
	p.pending = append(p.pending, data...)
	if !p.last {
		return nil
	}

	msg := make([]byte, len(p.pending))
	copy(msg, p.pending)
	p.pending = p.pending[:0]

	if err := p.conn.Publish(p.subject, msg); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	p.logger.Debugf("Published %d byte record to %s", len(msg), p.subject)
	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.logger.Warnf("Failed to drain NATS connection: %v", err)
		}
	}
}
