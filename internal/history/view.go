// Package history lists the orders of the logged-in user and renders their delivery notes.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"storefront-checkout/internal/deliverynote"
	"storefront-checkout/internal/domain"
)

var ErrNotAuthenticated = errors.New("history: not authenticated")

type OrderSource interface {
	ListOrdersForUser(ctx context.Context, ownerID int64) ([]domain.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
}

type Session interface {
	Current() (*domain.User, bool)
}

type NoteGenerator interface {
	Generate(order domain.Order, lines []domain.OrderLine, user domain.User) (*deliverynote.Document, error)
}

// Entry is one order row and whether its detail is expanded.
type Entry struct {
	Order    domain.Order
	Expanded bool
}

type View struct {
	orders    OrderSource
	session   Session
	generator NoteGenerator
	logger    *log.Logger

	mu       sync.Mutex
	entries  []Entry
	user     *domain.User
	torndown bool
}

func New(orders OrderSource, session Session, generator NoteGenerator, logger *log.Logger) *View {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &View{orders: orders, session: session, generator: generator, logger: logger}
}

// Activate loads the user's orders, newest first, all collapsed. Orders that arrive after
// Teardown are dropped.
func (v *View) Activate(ctx context.Context) error {
	user, ok := v.session.Current()
	if !ok || user == nil {
		return ErrNotAuthenticated
	}

	orders, err := v.orders.ListOrdersForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list orders for user %d: %w", user.ID, err)
	}
	SortNewestFirst(orders)

	entries := make([]Entry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, Entry{Order: o})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.torndown {
		v.logger.Printf("history: dropping %d orders loaded after teardown", len(orders))
		return nil
	}
	v.user = user
	v.entries = entries
	return nil
}

// SortNewestFirst orders by date descending, breaking ties by id descending.
func SortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if c := orders[i].Date.Compare(orders[j].Date); c != 0 {
			return c > 0
		}
		return orders[i].ID > orders[j].ID
	})
}

func (v *View) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Entry(nil), v.entries...)
}

func (v *View) Orders() []domain.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Order, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, e.Order)
	}
	return out
}

// Toggle flips the expanded state of an order and returns the new state.
func (v *View) Toggle(orderID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		if v.entries[i].Order.ID == orderID {
			v.entries[i].Expanded = !v.entries[i].Expanded
			return v.entries[i].Expanded
		}
	}
	return false
}

func (v *View) Expanded(orderID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.entries {
		if e.Order.ID == orderID {
			return e.Expanded
		}
	}
	return false
}

// DownloadDeliveryNote renders the delivery note of a loaded order. Lines carried by the
// order are used as is; otherwise they are fetched first and kept on the entry.
func (v *View) DownloadDeliveryNote(ctx context.Context, orderID int64) (*deliverynote.Document, error) {
	v.mu.Lock()
	var (
		order domain.Order
		found bool
	)
	for _, e := range v.entries {
		if e.Order.ID == orderID {
			order, found = e.Order, true
			break
		}
	}
	user := v.user
	v.mu.Unlock()

	if !found {
		return nil, fmt.Errorf("order %d is not in the history: %w", orderID, domain.ErrNotFound)
	}

	lines := order.Lines
	if len(lines) == 0 {
		fetched, err := v.orders.GetOrderLines(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("load lines of order %d: %w", orderID, err)
		}
		lines = fetched
		v.storeLines(orderID, fetched)
	}

	doc, err := v.generator.Generate(order, lines, *user)
	if err != nil {
		return nil, fmt.Errorf("generate delivery note for order %d: %w", orderID, err)
	}
	return doc, nil
}

func (v *View) storeLines(orderID int64, lines []domain.OrderLine) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		if v.entries[i].Order.ID == orderID {
			v.entries[i].Order.Lines = lines
			return
		}
	}
}

// Teardown stops the view from accepting any further results.
func (v *View) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.torndown = true
}
