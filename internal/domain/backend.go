package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BackendLine is an order line as the orders API serializes it.
type BackendLine struct {
	OrderID   int64  `json:"idpedido,omitempty"`
	ProductID int64  `json:"idprod"`
	Color     string `json:"color"`
	Quantity  int    `json:"cant"`
	Name      string `json:"nombre"`
}

// BackendOrder is an order as the orders API serializes it.
type BackendOrder struct {
	ID     int64         `json:"id"`
	UserID int64         `json:"iduser"`
	Date   string        `json:"fecha"`
	Total  float64       `json:"total"`
	Status string        `json:"estado,omitempty"`
	Lines  []BackendLine `json:"lineas"`
}

// CreateOrderRequest is the body of POST /pedidos.
type CreateOrderRequest struct {
	UserID int64         `json:"iduser"`
	Date   string        `json:"fecha"`
	Total  float64       `json:"total"`
	Lines  []BackendLine `json:"lineas"`
}

// StatusUpdateRequest is the body of PATCH /pedidos/{id}/status.
type StatusUpdateRequest struct {
	Status Status `json:"status"`
}

// DeliveryNoteEmailRequest is the body of POST /pedidos/enviar-albaran-email.
type DeliveryNoteEmailRequest struct {
	Order     BackendOrder `json:"pedido"`
	User      User         `json:"usuario"`
	PDFBase64 string       `json:"pdfBase64"`
}

// FromBackend converts the wire shape into an Order. A missing status reads as pending.
func FromBackend(b BackendOrder) (Order, error) {
	var date Date
	if strings.TrimSpace(b.Date) != "" {
		d, err := ParseDate(b.Date)
		if err != nil {
			return Order{}, fmt.Errorf("order %d: %w", b.ID, err)
		}
		date = d
	}
	status := Status(strings.ToLower(strings.TrimSpace(b.Status)))
	if status == "" {
		status = StatusPending
	}
	lines := make([]OrderLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		orderID := l.OrderID
		if orderID == 0 {
			orderID = b.ID
		}
		lines = append(lines, OrderLine{
			OrderID:   orderID,
			ProductID: l.ProductID,
			Color:     l.Color,
			Quantity:  l.Quantity,
			Name:      l.Name,
		})
	}
	return Order{
		ID:      b.ID,
		OwnerID: b.UserID,
		Date:    date,
		Total:   decimal.NewFromFloat(b.Total).Round(2),
		Lines:   lines,
		Status:  status,
	}, nil
}

// ToBackend converts an Order into the wire shape.
func ToBackend(o Order) BackendOrder {
	return BackendOrder{
		ID:     o.ID,
		UserID: o.OwnerID,
		Date:   o.Date.String(),
		Total:  o.Total.InexactFloat64(),
		Status: string(o.Status),
		Lines:  toBackendLines(o.Lines),
	}
}

// ToCreateRequest builds the POST body for a draft, defaulting blank colors to
// DefaultColor and a missing date to today.
func ToCreateRequest(o Order) CreateOrderRequest {
	date := o.Date
	if date.IsZero() {
		date = Today()
	}
	lines := toBackendLines(o.Lines)
	for i := range lines {
		lines[i].OrderID = 0
	}
	return CreateOrderRequest{
		UserID: o.OwnerID,
		Date:   date.String(),
		Total:  o.Total.InexactFloat64(),
		Lines:  lines,
	}
}

// FromCreateRequest converts a POST body into a draft order.
func FromCreateRequest(req CreateOrderRequest) (Order, error) {
	var date Date
	if strings.TrimSpace(req.Date) != "" {
		d, err := ParseDate(req.Date)
		if err != nil {
			return Order{}, &ValidationError{Subject: "order", Problems: []string{"fecha must be YYYY-MM-DD"}}
		}
		date = d
	}
	lines := make([]OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, OrderLine{
			ProductID: l.ProductID,
			Color:     l.Color,
			Quantity:  l.Quantity,
			Name:      l.Name,
		})
	}
	return NewDraft(req.UserID, date, decimal.NewFromFloat(req.Total).Round(2), lines), nil
}

func toBackendLines(lines []OrderLine) []BackendLine {
	out := make([]BackendLine, 0, len(lines))
	for _, l := range lines {
		color := strings.TrimSpace(l.Color)
		if color == "" {
			color = DefaultColor
		}
		out = append(out, BackendLine{
			OrderID:   l.OrderID,
			ProductID: l.ProductID,
			Color:     color,
			Quantity:  l.Quantity,
			Name:      l.Name,
		})
	}
	return out
}
