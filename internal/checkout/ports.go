package checkout

import (
	"context"
	"net/url"

	"storefront-checkout/internal/domain"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notice is a blocking message shown to the user. A non-empty CancelText makes it a
// confirm dialog.
type Notice struct {
	Level       Level
	Title       string
	Text        string
	ConfirmText string
	CancelText  string
}

// Answer is the user's response to a Notice.
type Answer struct {
	Confirmed bool
}

// Notifier shows a notice and returns once the user has acknowledged it.
type Notifier interface {
	Notify(ctx context.Context, n Notice) (Answer, error)
}

// Route is a navigation target inside the storefront.
type Route struct {
	Path  string
	Query url.Values
}

func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

var (
	RouteHome    = Route{Path: "/"}
	RouteProfile = Route{Path: "/profile"}
	RouteLogin   = Route{Path: "/login", Query: url.Values{"returnUrl": {"/checkout"}}}
)

type Navigator interface {
	Navigate(ctx context.Context, r Route) error
}

// ScrollLock is a page-level UI lock. Unlock must be safe to call repeatedly.
type ScrollLock interface {
	Lock()
	Unlock()
}

// Keyboard delivers global key presses until the returned function is called.
type Keyboard interface {
	Listen(fn func(key string)) (remove func())
}

// CartSource is the cart snapshot provider.
type CartSource interface {
	Subscribe(fn func([]domain.CartItem)) (unsubscribe func())
	Clear()
}

// Session is the identity provider.
type Session interface {
	Current() (*domain.User, bool)
	Logout() bool
}

// OrderSubmitter creates orders on the backend.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, draft domain.Order) (*domain.Order, error)
}

type Panel int

const (
	PanelOrder Panel = iota
	PanelDelivery
	PanelPayment
)

func (p Panel) String() string {
	switch p {
	case PanelOrder:
		return "order"
	case PanelDelivery:
		return "delivery"
	case PanelPayment:
		return "payment"
	default:
		return "unknown"
	}
}
