package orderapi

import (
	"context"
	"fmt"
	"net/http"

	"storefront-checkout/internal/domain"
)

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"usuario"`
}

// Login exchanges credentials for a bearer token. It does not start a session.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		op:     "log in",
		method: http.MethodPost,
		path:   "auth/login",
		in:     map[string]string{"username": username, "password": password},
		out:    &resp,
		public: true,
	})
	if err != nil {
		return nil, "", err
	}
	if resp.Token == "" {
		return nil, "", fmt.Errorf("log in: server returned no token")
	}
	return &resp.User, resp.Token, nil
}

// Me returns the authenticated user's current profile.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, call{op: "load profile", method: http.MethodGet, path: "usuarios/me", out: &u}); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListOrdersForUser returns the owner's orders in the order the server sent them.
func (c *Client) ListOrdersForUser(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	var backend []domain.BackendOrder
	err := c.do(ctx, call{op: "list orders", method: http.MethodGet, path: fmt.Sprintf("pedidos/user/%d", ownerID), out: &backend})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(backend))
	for _, b := range backend {
		o, err := domain.FromBackend(b)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ListMyOrders lists the orders of the session's user.
func (c *Client) ListMyOrders(ctx context.Context) ([]domain.Order, error) {
	u, ok := c.session.Current()
	if !ok || u.ID <= 0 {
		return nil, ErrUnauthenticated
	}
	return c.ListOrdersForUser(ctx, u.ID)
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return c.orderCall(ctx, call{op: "get order", method: http.MethodGet, path: fmt.Sprintf("pedidos/%d", id)})
}

func (c *Client) GetOrderLines(ctx context.Context, id int64) ([]domain.OrderLine, error) {
	var backend []domain.BackendLine
	err := c.do(ctx, call{op: "get order lines", method: http.MethodGet, path: fmt.Sprintf("pedidos/%d/lineas", id), out: &backend})
	if err != nil {
		return nil, err
	}
	o, err := domain.FromBackend(domain.BackendOrder{ID: id, Lines: backend})
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

// CreateOrder validates the draft locally and, only if it is valid, submits it.
// An invalid draft yields a *domain.ValidationError listing every problem.
func (c *Client) CreateOrder(ctx context.Context, draft domain.Order) (*domain.Order, error) {
	if c.session.Token() == "" {
		return nil, ErrUnauthenticated
	}
	if err := draft.Validate(); err != nil {
		c.logger.Printf("orders api: rejected draft locally: %v", err)
		return nil, err
	}
	return c.orderCall(ctx, call{
		op:     "create order",
		method: http.MethodPost,
		path:   "pedidos",
		in:     domain.ToCreateRequest(draft),
	})
}

func (c *Client) CancelOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return c.orderCall(ctx, call{op: "cancel order", method: http.MethodPatch, path: fmt.Sprintf("pedidos/%d/cancel", id), in: struct{}{}})
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error) {
	return c.orderCall(ctx, call{
		op:     "update order status",
		method: http.MethodPatch,
		path:   fmt.Sprintf("pedidos/%d/status", id),
		in:     domain.StatusUpdateRequest{Status: status},
	})
}

func (c *Client) Summary(ctx context.Context) (domain.OrderSummary, error) {
	var s domain.OrderSummary
	err := c.do(ctx, call{op: "load order summary", method: http.MethodGet, path: "pedidos/summary", out: &s})
	return s, err
}

// SendDeliveryNoteByEmail asks the backend to email a delivery note. Failures are
// logged and returned to the caller; nothing is retried.
func (c *Client) SendDeliveryNoteByEmail(ctx context.Context, order domain.Order, user domain.User, encodedPDF string) error {
	err := c.do(ctx, call{
		op:     "send delivery note",
		method: http.MethodPost,
		path:   "pedidos/enviar-albaran-email",
		in: domain.DeliveryNoteEmailRequest{
			Order:     domain.ToBackend(order),
			User:      user,
			PDFBase64: encodedPDF,
		},
	})
	if err != nil && !isAPIError(err) {
		c.logger.Printf("orders api: send delivery note order=%d err=%v", order.ID, err)
	}
	return err
}

func (c *Client) orderCall(ctx context.Context, cl call) (*domain.Order, error) {
	var b domain.BackendOrder
	cl.out = &b
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	o, err := domain.FromBackend(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cl.op, err)
	}
	return &o, nil
}
