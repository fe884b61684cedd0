package notify

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
)

// New builds the notifier selected by cfg.Notifier. The returned close
// function releases its connections.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (dispatch.Notifier, func() error, error) {
	switch cfg.Notifier {
	case "", "log":
		return NewLogNotifier(logger), func() error { return nil }, nil

	case "amqp":
		conn, err := amqp091.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		n, err := NewAMQPNotifier(conn, cfg.AMQPQueue)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return n, func() error {
			_ = n.Close()
			return conn.Close()
		}, nil

	case "sqs":
		client, err := NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return NewSQSNotifier(client, cfg.SQSQueueURL), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
}
