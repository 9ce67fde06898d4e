package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultColor is used for lines and cart items that carry no color.
const DefaultColor = "Standard"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// LineKey identifies a product variant inside a cart or an order.
type LineKey struct {
	ProductID int64
	Color     string
}

type OrderLine struct {
	OrderID   int64  `json:"orderId"`
	ProductID int64  `json:"productId"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
}

func (l OrderLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Color: l.Color}
}

type Order struct {
	ID      int64           `json:"id"`
	OwnerID int64           `json:"ownerId"`
	Date    Date            `json:"date"`
	Total   decimal.Decimal `json:"total"`
	Lines   []OrderLine     `json:"lines"`
	Status  Status          `json:"status"`
}

// NewDraft builds an order that the backend has not accepted yet.
func NewDraft(ownerID int64, date Date, total decimal.Decimal, lines []OrderLine) Order {
	return Order{
		ID:      0,
		OwnerID: ownerID,
		Date:    date,
		Total:   total,
		Lines:   lines,
		Status:  StatusPending,
	}
}

// Validate checks the fields every submitted order must carry and reports all problems at once.
func (o Order) Validate() error {
	var problems []string
	if len(o.Lines) == 0 {
		problems = append(problems, "order has no lines")
	}
	if !o.Total.IsPositive() {
		problems = append(problems, "total must be positive")
	}
	if o.OwnerID <= 0 {
		problems = append(problems, "owner is required")
	}
	for i, l := range o.Lines {
		if l.ProductID <= 0 {
			problems = append(problems, fmt.Sprintf("line %d: product is required", i+1))
		}
		if l.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Subject: "order", Problems: problems}
	}
	return nil
}

// OrderSummary aggregates a user's orders.
type OrderSummary struct {
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	ByStatus    map[Status]int  `json:"byStatus"`
}
