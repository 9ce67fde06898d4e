package events

import (
	"context"
	"errors"
	"time"

	"storefront-checkout/internal/domain"
)

const (
	OrderCreatedQueue      = "order.created"
	DeliveryNoteEmailQueue = "order.delivery_note.email"
)

// ErrPublishingDisabled is returned by NopPublisher for events that must not be dropped silently.
var ErrPublishingDisabled = errors.New("event publishing disabled: AMQP_URL not configured")

type OrderLine struct {
	ProductID int64  `json:"productId"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type OrderCreated struct {
	EventType string      `json:"eventType"`
	OrderID   int64       `json:"orderId"`
	UserID    int64       `json:"userId"`
	Date      string      `json:"date"`
	Total     string      `json:"total"`
	Lines     []OrderLine `json:"lines"`
	Timestamp time.Time   `json:"timestamp"`
}

// DeliveryNoteEmail asks the mailer to send the attached PDF to the order's owner.
type DeliveryNoteEmail struct {
	EventType string    `json:"eventType"`
	OrderID   int64     `json:"orderId"`
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	PDFBase64 string    `json:"pdfBase64"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits order events.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o domain.Order) error
	PublishDeliveryNoteEmail(ctx context.Context, ev DeliveryNoteEmail) error
	Close() error
}

// NopPublisher drops order-created events and refuses delivery-note emails.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, domain.Order) error { return nil }

func (NopPublisher) PublishDeliveryNoteEmail(context.Context, DeliveryNoteEmail) error {
	return ErrPublishingDisabled
}

func (NopPublisher) Close() error { return nil }

func newOrderCreated(o domain.Order, now time.Time) OrderCreated {
	ev := OrderCreated{
		EventType: "OrderCreated",
		OrderID:   o.ID,
		UserID:    o.OwnerID,
		Date:      o.Date.String(),
		Total:     o.Total.StringFixed(2),
		Timestamp: now.UTC(),
	}
	for _, l := range o.Lines {
		ev.Lines = append(ev.Lines, OrderLine{ProductID: l.ProductID, Color: l.Color, Quantity: l.Quantity})
	}
	return ev
}
