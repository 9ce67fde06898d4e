package domain

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	ImageRef   string          `json:"imageRef"`
	ProductRef ProductRef      `json:"productRef"`
}

func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.ID, Color: i.Color}
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ProductRef is a product reference kept in its serialized (JSON text) form.
// It decodes from either a JSON string or a nested JSON object.
type ProductRef string

// ProductInfo is the display shape of a product reference.
type ProductInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ProductRefFrom serializes v unless it already is a string.
func ProductRefFrom(v any) (ProductRef, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return ProductRef(t), nil
	case ProductRef:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return ProductRef(b), nil
	}
}

// Info decodes the reference. ok is false when it is empty or not a JSON object.
func (r ProductRef) Info() (ProductInfo, bool) {
	if r == "" {
		return ProductInfo{}, false
	}
	var info ProductInfo
	if err := json.Unmarshal([]byte(r), &info); err != nil {
		return ProductInfo{}, false
	}
	return info, true
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

func (r *ProductRef) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = ProductRef(s)
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return err
	}
	*r = ProductRef(compact.String())
	return nil
}
