package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends slot events to RabbitMQ.  It dials per publish; slot
// writes are rare enough that a pooled connection is not worth the
// reconnect handling.
type Publisher struct {
	url string
}

// NewPublisher returns a publisher for the broker at url, or nil when url
// is empty.  A nil *Publisher discards events.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishSlotEvent publishes ev to the slot.events queue as a persistent
// JSON message.
func (p *Publisher) PublishSlotEvent(ctx context.Context, ev SlotEvent) error {
	if p == nil {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareSlotQueue(ch); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal slot event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", SlotQueueName, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	slog.Debug("slot event published", "type", ev.Type, "session_id", ev.SessionID)
	return nil
}

func declareSlotQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(SlotQueueName, true, false, false, false, nil)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}
