package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPNotifier publishes notification requests as JSON onto a durable queue.
// The consumer renders and delivers them.
type AMQPNotifier struct {
	channel publisher
	queue   string
	closer  func() error
}

func NewAMQPNotifier(conn *amqp091.Connection, queue string) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPNotifier{channel: ch, queue: queue, closer: ch.Close}, nil
}

func (n *AMQPNotifier) Send(ctx context.Context, notification dispatch.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	message := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Headers: amqp091.Table{
			"message_type":      "JSON",
			"notification_kind": string(notification.Kind),
		},
	}

	if err := n.channel.PublishWithContext(ctx, "", n.queue, false, false, message); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
