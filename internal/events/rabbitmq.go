package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront-checkout/internal/domain"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events to durable queues through the default exchange.
type AMQPPublisher struct {
	ch  channel
	now func() time.Time
}

// Dial connects to RabbitMQ and returns a publisher that owns the connection.
func Dial(url string) (*AMQPPublisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	p, err := NewAMQPPublisher(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return p, conn, nil
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	for _, q := range []string{OrderCreatedQueue, DeliveryNoteEmailQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}
	return &AMQPPublisher{ch: ch, now: time.Now}, nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

func (p *AMQPPublisher) PublishOrderCreated(ctx context.Context, o domain.Order) error {
	body, err := json.Marshal(newOrderCreated(o, p.now()))
	if err != nil {
		return fmt.Errorf("marshal OrderCreated: %w", err)
	}
	return p.publishJSON(ctx, OrderCreatedQueue, body)
}

func (p *AMQPPublisher) PublishDeliveryNoteEmail(ctx context.Context, ev DeliveryNoteEmail) error {
	ev.EventType = "DeliveryNoteEmailRequested"
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal DeliveryNoteEmail: %w", err)
	}
	return p.publishJSON(ctx, DeliveryNoteEmailQueue, body)
}

func (p *AMQPPublisher) publishJSON(ctx context.Context, queue string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}
