package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/domain"
)

type recordingChannel struct {
	keys []string
	msgs []amqp.Publishing
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if exchange != "" {
		return errors.New("unexpected exchange " + exchange)
	}
	c.keys = append(c.keys, key)
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func fixedNow() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestPublishOrderCreated(t *testing.T) {
	ch := &recordingChannel{}
	p := &AMQPPublisher{ch: ch, now: fixedNow}

	o := domain.Order{
		ID:      42,
		OwnerID: 7,
		Date:    domain.NewDate(2024, 5, 1),
		Total:   decimal.RequireFromString("59.9"),
		Status:  domain.StatusPending,
		Lines:   []domain.OrderLine{{OrderID: 42, ProductID: 3, Color: "Rojo", Quantity: 2}},
	}
	if err := p.PublishOrderCreated(context.Background(), o); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.keys) != 1 || ch.keys[0] != OrderCreatedQueue {
		t.Fatalf("unexpected routing keys: %v", ch.keys)
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing: %+v", msg)
	}
	var ev OrderCreated
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.OrderID != 42 || ev.Total != "59.90" || len(ev.Lines) != 1 || ev.Date != "2024-05-01" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestPublishDeliveryNoteEmail(t *testing.T) {
	ch := &recordingChannel{}
	p := &AMQPPublisher{ch: ch, now: fixedNow}

	err := p.PublishDeliveryNoteEmail(context.Background(), DeliveryNoteEmail{OrderID: 5, Email: "ana@example.com", PDFBase64: "JVBERi0="})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.keys[0] != DeliveryNoteEmailQueue {
		t.Fatalf("unexpected routing key: %s", ch.keys[0])
	}
	var ev DeliveryNoteEmail
	if err := json.Unmarshal(ch.msgs[0].Body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.EventType != "DeliveryNoteEmailRequested" || !ev.Timestamp.Equal(fixedNow()) {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNopPublisherRefusesEmail(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.PublishOrderCreated(context.Background(), domain.Order{}); err != nil {
		t.Fatalf("order created should be dropped silently: %v", err)
	}
	if err := p.PublishDeliveryNoteEmail(context.Background(), DeliveryNoteEmail{}); !errors.Is(err, ErrPublishingDisabled) {
		t.Fatalf("expected ErrPublishingDisabled, got %v", err)
	}
}
