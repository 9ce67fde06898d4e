// Package checkout drives a single checkout session: it watches the cart, resolves the
// shipping data, and submits the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"storefront-checkout/internal/cart"
	"storefront-checkout/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrNotAuthenticated   = errors.New("checkout: not authenticated")
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrIncompleteProfile  = errors.New("checkout: shipping profile is incomplete")
	ErrInvalidForm        = errors.New("checkout: shipping form is invalid")
	ErrSubmissionInFlight = errors.New("checkout: an order is already being submitted")
	ErrUnexpected         = errors.New("checkout: unexpected error")
)

const escapeKey = "Escape"

// Deps are the collaborators of a Flow. ScrollLock, Keyboard, Logger and Now are optional.
type Deps struct {
	Cart       CartSource
	Session    Session
	Orders     OrderSubmitter
	Notifier   Notifier
	Navigator  Navigator
	ScrollLock ScrollLock
	Keyboard   Keyboard
	Logger     *log.Logger
	Now        func() time.Time
}

// Flow is one checkout session. Activate starts it and Teardown ends it.
type Flow struct {
	deps   Deps
	logger *log.Logger
	now    func() time.Time
	form   *ShippingForm

	mu          sync.Mutex
	ctx         context.Context
	user        *domain.User
	items       []domain.CartItem
	total       decimal.Decimal
	bypass      bool
	panel       Panel
	loading     bool
	closed      bool
	activated   bool
	unsubscribe func()
	removeKey   func()
}

func New(deps Deps) *Flow {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Flow{
		deps:   deps,
		logger: logger,
		now:    now,
		form:   NewShippingForm(ShippingData{}),
		total:  decimal.Zero,
		panel:  PanelOrder,
	}
}

// Activate acquires the scroll lock, checks the identity, decides between the stored
// profile and the manual form, and subscribes to the cart. It returns ErrNotAuthenticated
// or ErrEmptyCart when the flow closed straight away.
func (f *Flow) Activate(ctx context.Context) error {
	f.mu.Lock()
	if f.activated {
		f.mu.Unlock()
		return nil
	}
	f.activated = true
	f.ctx = ctx
	f.mu.Unlock()

	if f.deps.ScrollLock != nil {
		f.deps.ScrollLock.Lock()
	}

	user, ok := f.deps.Session.Current()
	if !ok || user == nil {
		f.notify(ctx, Notice{
			Level:       LevelWarning,
			Title:       "Login required",
			Text:        "You must log in to complete your purchase.",
			ConfirmText: "Log in",
		})
		f.closeTo(ctx, RouteLogin)
		return ErrNotAuthenticated
	}

	bypass := user.HasCompleteShipping()
	f.mu.Lock()
	f.user = user
	f.bypass = bypass
	f.mu.Unlock()
	if bypass {
		f.form.disable()
	} else {
		f.form = NewShippingForm(ShippingFromUser(*user))
	}

	if f.deps.Keyboard != nil {
		remove := f.deps.Keyboard.Listen(func(key string) {
			if key == escapeKey {
				f.Close(ctx)
			}
		})
		f.mu.Lock()
		f.removeKey = remove
		f.mu.Unlock()
	}

	unsubscribe := f.deps.Cart.Subscribe(f.onCart)
	f.mu.Lock()
	f.unsubscribe = unsubscribe
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrEmptyCart
	}
	return nil
}

func (f *Flow) onCart(items []domain.CartItem) {
	normalized := cart.Normalize(items)
	total := cart.Total(normalized)

	f.mu.Lock()
	f.items = normalized
	f.total = total
	ctx, closed := f.ctx, f.closed
	f.mu.Unlock()

	if len(normalized) > 0 || closed {
		return
	}
	f.notify(ctx, Notice{
		Level:       LevelInfo,
		Title:       "Empty cart",
		Text:        "Your cart is empty. Add some products before checking out.",
		ConfirmText: "Keep shopping",
	})
	f.Close(ctx)
}

// PlaceOrder submits the current cart. It returns the order assigned by the backend.
func (f *Flow) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	f.loading = true
	items := append([]domain.CartItem(nil), f.items...)
	total := f.total
	bypass := f.bypass
	f.mu.Unlock()

	user, ok := f.deps.Session.Current()
	if !ok || user == nil {
		f.setLoading(false)
		f.notify(ctx, Notice{
			Level:       LevelError,
			Title:       "Authentication error",
			Text:        "Your session has expired. Please log in again.",
			ConfirmText: "Log in",
		})
		f.closeTo(ctx, RouteLogin)
		return nil, ErrNotAuthenticated
	}

	if len(items) == 0 {
		f.setLoading(false)
		f.notify(ctx, Notice{
			Level:       LevelWarning,
			Title:       "Empty cart",
			Text:        "There are no products in your cart.",
			ConfirmText: "OK",
		})
		return nil, ErrEmptyCart
	}

	if err := f.resolveShipping(ctx, *user, bypass); err != nil {
		f.setLoading(false)
		return nil, err
	}

	return f.submit(ctx, *user, items, total)
}

func (f *Flow) resolveShipping(ctx context.Context, user domain.User, bypass bool) error {
	if bypass {
		if user.HasCompleteShipping() {
			return nil
		}
		answer := f.notify(ctx, Notice{
			Level:       LevelWarning,
			Title:       "Incomplete profile",
			Text:        "Your shipping details are incomplete. Complete your profile to continue.",
			ConfirmText: "Complete profile",
			CancelText:  "Later",
		})
		if answer.Confirmed {
			f.closeTo(ctx, RouteProfile)
		}
		return ErrIncompleteProfile
	}

	if f.form.Valid() {
		return nil
	}
	f.form.TouchAll()
	f.notify(ctx, Notice{
		Level:       LevelWarning,
		Title:       "Incomplete form",
		Text:        "Please fix the following fields:\n" + f.form.Summary(),
		ConfirmText: "OK",
	})
	return ErrInvalidForm
}

func (f *Flow) submit(ctx context.Context, user domain.User, items []domain.CartItem, total decimal.Decimal) (created *domain.Order, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Printf("checkout: panic while submitting order: %v", r)
			f.setLoading(false)
			f.notify(ctx, Notice{
				Level:       LevelError,
				Title:       "Unexpected error",
				Text:        "An unexpected error occurred while processing your order. Please try again.",
				ConfirmText: "OK",
			})
			created, err = nil, fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()

	lines := LinesFromItems(items)
	draft := domain.NewDraft(user.ID, domain.DateOf(f.now()), total, lines)

	created, err = f.deps.Orders.CreateOrder(ctx, draft)
	f.setLoading(false)
	if err != nil {
		f.logger.Printf("checkout: create order for user %d: %v", user.ID, err)
		f.notify(ctx, Notice{
			Level:       LevelError,
			Title:       "Error processing the order",
			Text:        err.Error(),
			ConfirmText: "OK",
		})
		if sessionExpired(err) {
			f.deps.Session.Logout()
			f.closeTo(ctx, RouteLogin)
		}
		return nil, err
	}

	// The flow no longer cares about the cart; clearing it must not raise the empty-cart notice.
	f.releaseCart()
	f.deps.Cart.Clear()

	f.notify(ctx, Notice{
		Level:       LevelSuccess,
		Title:       "Payment completed",
		Text:        fmt.Sprintf("Your order has been processed. Order number: %d", created.ID),
		ConfirmText: "View my orders",
	})
	f.closeTo(ctx, RouteProfile)
	return created, nil
}

// LinesFromItems maps each cart item to one order line.
func LinesFromItems(items []domain.CartItem) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		color := it.Color
		if color == "" {
			color = domain.DefaultColor
		}
		lines = append(lines, domain.OrderLine{
			ProductID: it.ID,
			Color:     color,
			Quantity:  it.Quantity,
			Name:      it.Name,
		})
	}
	return lines
}

// ItemsFromLines rebuilds cart items for lines, taking price and product details from the
// current cart item with the same product and color.
func (f *Flow) ItemsFromLines(lines []domain.OrderLine) []domain.CartItem {
	return ItemsFromLines(lines, f.Items())
}

func ItemsFromLines(lines []domain.OrderLine, known []domain.CartItem) []domain.CartItem {
	byKey := make(map[domain.LineKey]domain.CartItem, len(known))
	for _, it := range known {
		byKey[it.Key()] = it
	}
	out := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		item := domain.CartItem{
			ID:        l.ProductID,
			Name:      l.Name,
			Color:     l.Color,
			Quantity:  l.Quantity,
			UnitPrice: decimal.Zero,
		}
		if k, ok := byKey[l.Key()]; ok {
			item.UnitPrice = k.UnitPrice
			item.ImageRef = k.ImageRef
			item.ProductRef = k.ProductRef
			if item.Name == "" {
				item.Name = k.Name
			}
		}
		out = append(out, item)
	}
	return out
}

func (f *Flow) GoToOrder()    { f.setPanel(PanelOrder) }
func (f *Flow) GoToDelivery() { f.setPanel(PanelDelivery) }

// GoToPayment moves to the payment panel unless the manual form is in use and invalid.
func (f *Flow) GoToPayment() bool {
	if !f.BypassForm() && !f.form.Valid() {
		f.form.TouchAll()
		return false
	}
	f.setPanel(PanelPayment)
	return true
}

// Close releases the scroll lock and navigates to the storefront root.
func (f *Flow) Close(ctx context.Context) {
	f.closeTo(ctx, RouteHome)
}

func (f *Flow) closeTo(ctx context.Context, r Route) {
	if f.deps.ScrollLock != nil {
		f.deps.ScrollLock.Unlock()
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if err := f.deps.Navigator.Navigate(ctx, r); err != nil {
		f.logger.Printf("checkout: navigate to %s: %v", r, err)
	}
}

// Teardown releases everything Activate acquired. It is safe to call more than once.
func (f *Flow) Teardown() {
	if f.deps.ScrollLock != nil {
		f.deps.ScrollLock.Unlock()
	}
	f.mu.Lock()
	remove := f.removeKey
	f.removeKey = nil
	f.mu.Unlock()
	if remove != nil {
		remove()
	}
	f.releaseCart()
}

func (f *Flow) releaseCart() {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (f *Flow) notify(ctx context.Context, n Notice) Answer {
	answer, err := f.deps.Notifier.Notify(ctx, n)
	if err != nil {
		f.logger.Printf("checkout: notify %q: %v", n.Title, err)
		return Answer{}
	}
	return answer
}

func (f *Flow) setLoading(v bool) {
	f.mu.Lock()
	f.loading = v
	f.mu.Unlock()
}

func (f *Flow) setPanel(p Panel) {
	f.mu.Lock()
	f.panel = p
	f.mu.Unlock()
}

func (f *Flow) Form() *ShippingForm { return f.form }

func (f *Flow) Items() []domain.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CartItem(nil), f.items...)
}

func (f *Flow) Total() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *Flow) Panel() Panel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.panel
}

func (f *Flow) BypassForm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bypass
}

func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// User returns the identity captured at activation.
func (f *Flow) User() (domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return domain.User{}, false
	}
	return *f.user, true
}

type sessionExpirer interface {
	SessionExpired() bool
}

func sessionExpired(err error) bool {
	var se sessionExpirer
	return errors.As(err, &se) && se.SessionExpired()
}
