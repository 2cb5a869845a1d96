// Package rabbit publishes lifecycle notifications to a topic exchange.
// Delivery is at-least-once on the broker side; publish errors are returned
// to the caller, which treats them as non-fatal.
package rabbit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventura/booking-service/internal/booking"
)

const exchange = "booking.events"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) PublishNotification(ctx context.Context, n booking.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	key := "notification." + strings.ToLower(n.EventType)
	msg := amqp.Publishing{
		MessageId:    n.EventID.String(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return errors.Wrapf(err, "publishing %s", n.EventType)
	}
	return nil
}
