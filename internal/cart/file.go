package cart

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"storefront-checkout/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileItem struct {
	ID         int64     `yaml:"id"`
	Name       string    `yaml:"name"`
	Color      string    `yaml:"color"`
	Quantity   int       `yaml:"quantity"`
	UnitPrice  yaml.Node `yaml:"unitPrice"`
	ImageRef   string    `yaml:"imageRef"`
	ProductRef yaml.Node `yaml:"productRef"`
}

type fileDoc struct {
	Items []fileItem `yaml:"items"`
}

// LoadFile reads a cart from a YAML or JSON file. The document is either a list of
// items or a mapping with an "items" key.
func LoadFile(path string) ([]domain.CartItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	items, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Parse decodes cart items from YAML or JSON text.
func Parse(raw []byte) ([]domain.CartItem, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cart: %w", err)
	}
	if len(doc.Content) == 0 {
		return []domain.CartItem{}, nil
	}
	root := doc.Content[0]

	var entries []fileItem
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	case yaml.MappingNode:
		var wrapped fileDoc
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		entries = wrapped.Items
	default:
		return nil, fmt.Errorf("parse cart: expected a list or an items mapping")
	}

	items := make([]domain.CartItem, 0, len(entries))
	for i, e := range entries {
		price := decimal.Zero
		if v := strings.TrimSpace(e.UnitPrice.Value); v != "" {
			p, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("item %d: unitPrice %q: %w", i+1, v, err)
			}
			price = p
		}
		ref, err := productRefFromNode(&e.ProductRef)
		if err != nil {
			return nil, fmt.Errorf("item %d: productRef: %w", i+1, err)
		}
		items = append(items, domain.CartItem{
			ID:         e.ID,
			Name:       e.Name,
			Color:      e.Color,
			Quantity:   e.Quantity,
			UnitPrice:  price,
			ImageRef:   e.ImageRef,
			ProductRef: ref,
		})
	}
	return items, nil
}

func productRefFromNode(n *yaml.Node) (domain.ProductRef, error) {
	switch n.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return domain.ProductRef(n.Value), nil
	case yaml.MappingNode:
		var m map[string]any
		if err := n.Decode(&m); err != nil {
			return "", err
		}
		b, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		return domain.ProductRef(b), nil
	default:
		return "", fmt.Errorf("unsupported node kind %d", n.Kind)
	}
}

type savedItem struct {
	ID         int64  `yaml:"id"`
	Name       string `yaml:"name,omitempty"`
	Color      string `yaml:"color,omitempty"`
	Quantity   int    `yaml:"quantity"`
	UnitPrice  string `yaml:"unitPrice"`
	ImageRef   string `yaml:"imageRef,omitempty"`
	ProductRef string `yaml:"productRef,omitempty"`
}

// SaveFile writes items as a YAML "items" mapping that LoadFile reads back.
func SaveFile(path string, items []domain.CartItem) error {
	doc := struct {
		Items []savedItem `yaml:"items"`
	}{Items: make([]savedItem, 0, len(items))}
	for _, it := range items {
		doc.Items = append(doc.Items, savedItem{
			ID:         it.ID,
			Name:       it.Name,
			Color:      it.Color,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.String(),
			ImageRef:   it.ImageRef,
			ProductRef: string(it.ProductRef),
		})
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
