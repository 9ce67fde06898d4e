package cart

import (
	"strings"
	"sync"

	"storefront-checkout/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultImage is shown for items whose product carries no image.
const DefaultImage = "assets/images/default.jpg"

// Store holds the current cart and pushes every change to its subscribers.
type Store struct {
	mu        sync.Mutex
	items     []domain.CartItem
	listeners map[int]func([]domain.CartItem)
	nextID    int
}

func NewStore(items ...domain.CartItem) *Store {
	return &Store{items: clone(items), listeners: make(map[int]func([]domain.CartItem))}
}

// Subscribe calls fn with the current snapshot right away and again after every change.
// The returned function removes the subscription and may be called more than once.
func (s *Store) Subscribe(fn func([]domain.CartItem)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	snapshot := clone(s.items)
	s.mu.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Total sums unit price times quantity over every item.
func (s *Store) Total() decimal.Decimal {
	return Total(s.Items())
}

func (s *Store) Set(items []domain.CartItem) {
	s.update(func([]domain.CartItem) []domain.CartItem { return clone(items) })
}

// Add appends item, merging quantities with an existing item of the same product and color.
func (s *Store) Add(item domain.CartItem) {
	s.update(func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Key() == item.Key() {
				items[i].Quantity += item.Quantity
				return items
			}
		}
		return append(items, item)
	})
}

func (s *Store) Clear() {
	s.update(func([]domain.CartItem) []domain.CartItem { return nil })
}

func (s *Store) update(fn func([]domain.CartItem) []domain.CartItem) {
	s.mu.Lock()
	s.items = fn(s.items)
	snapshot := clone(s.items)
	listeners := make([]func([]domain.CartItem), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(clone(snapshot))
	}
}

// Total sums unit price times quantity over items.
func Total(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Normalize fills a missing color with domain.DefaultColor and trims text fields.
// Product references are already kept in serialized form.
func Normalize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		it.Color = strings.TrimSpace(it.Color)
		if it.Color == "" {
			it.Color = domain.DefaultColor
		}
		it.Name = strings.TrimSpace(it.Name)
		it.ImageRef = strings.TrimSpace(it.ImageRef)
		out = append(out, it)
	}
	return out
}

// ImageSrc resolves the image to show for an item. An unreadable product reference
// falls back to DefaultImage.
func ImageSrc(item domain.CartItem) string {
	if item.ProductRef != "" {
		info, ok := item.ProductRef.Info()
		if !ok || info.Image == "" {
			return DefaultImage
		}
		return info.Image
	}
	if item.ImageRef != "" {
		return item.ImageRef
	}
	return DefaultImage
}

func clone(items []domain.CartItem) []domain.CartItem {
	if items == nil {
		return []domain.CartItem{}
	}
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
