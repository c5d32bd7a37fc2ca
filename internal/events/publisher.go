package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/metrics"
)

type channelSource interface {
	WithChannel(ctx context.Context, fn func(ch Channel) error) error
}

// AMQPPublisher publishes events as persistent JSON messages routed by event
// type.
type AMQPPublisher struct {
	src      channelSource
	exchange string
	logger   zerolog.Logger
}

func NewAMQPPublisher(conn *Connection, logger zerolog.Logger) *AMQPPublisher {
	return newAMQPPublisher(conn, conn.exchange, logger)
}

func newAMQPPublisher(src channelSource, exchange string, logger zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{src: src, exchange: exchange, logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.src.WithChannel(ctx, func(ch Channel) error {
		return ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     ev.ID,
			CorrelationId: ev.WorkflowID,
			Timestamp:     ev.Timestamp,
			Type:          ev.Type,
			Body:          body,
		})
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		return fmt.Errorf("publish %s for %s: %w", ev.Type, ev.WorkflowID, err)
	}

	metrics.EventsPublished.WithLabelValues(ev.Type, "success").Inc()
	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("routing_key", ev.Type).
		Str("message_id", ev.ID).
		Str("workflow_id", ev.WorkflowID).
		Msg("published event")
	return nil
}
