package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"felicityevents/internal/domain"
)

const exchangeName = "felicity.notifications"

type rabbitNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewRabbitNotifier connects to RabbitMQ and declares the topic exchange
// notifications are published to. Routing keys are the notification names,
// so consumers can bind to "payment.*" or a single event name.
func NewRabbitNotifier(url string, logger *slog.Logger) (domain.Notifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	logger.Info("RabbitMQ notifier initialized", "exchange", exchangeName)
	return &rabbitNotifier{conn: conn, channel: ch, logger: logger}, nil
}

func (r *rabbitNotifier) Publish(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	err = r.channel.PublishWithContext(ctx, exchangeName, n.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   n.ID,
		Timestamp:   n.OccurredAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (r *rabbitNotifier) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

type noopNotifier struct{}

// NewNoopNotifier returns a Notifier that drops everything. Used when no
// AMQP URL is configured.
func NewNoopNotifier() domain.Notifier {
	return noopNotifier{}
}

func (noopNotifier) Publish(ctx context.Context, n domain.Notification) error { return nil }
func (noopNotifier) Close() error                                             { return nil }
