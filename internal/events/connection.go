package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Connection wraps an AMQP connection and re-dials it when the broker drops
// it.
type Connection struct {
	url      string
	exchange string
	logger   zerolog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}
}

// Dial connects to the broker and declares the durable topic exchange events
// are published to.
func Dial(url, exchange string, logger zerolog.Logger) (*Connection, error) {
	c := &Connection{
		url:      url,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp").Logger(),
		closedCh: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}

	c.conn = conn
	c.channel = ch
	c.logger.Info().Str("exchange", c.exchange).Msg("connected to broker")
	return nil
}

func (c *Connection) watch() {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		conn := c.conn
		c.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-notifyClose:
			if err != nil {
				c.logger.Warn().Err(err).Msg("broker connection closed")
			}
			c.reconnect()
		}
	}
}

// reconnect retries with doubling delay up to 30s until it succeeds or the
// connection is closed.
func (c *Connection) reconnect() {
	delay := time.Second
	for {
		select {
		case <-c.closedCh:
			return
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.logger.Warn().Err(err).Dur("delay", delay).Msg("broker reconnect failed")
			delay = min(delay*2, 30*time.Second)
			continue
		}
		return
	}
}

// WithChannel runs fn with the current channel.
func (c *Connection) WithChannel(_ context.Context, fn func(ch Channel) error) error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil || ch.IsClosed() {
		return fmt.Errorf("no broker channel available")
	}
	return fn(ch)
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close amqp connection: %w", err)
		}
	}
	return nil
}
