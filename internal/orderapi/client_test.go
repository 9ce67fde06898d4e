package orderapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedIn(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore()
	require.NoError(t, s.Start(domain.User{ID: 7, Username: "ana", Email: "ana@example.com"}, "tok-1"))
	return s
}

func newClient(t *testing.T, srv *httptest.Server, s Session) *Client {
	t.Helper()
	c, err := New(srv.URL+"/api", srv.Client(), s, nil)
	require.NoError(t, err)
	return c
}

func validDraft() domain.Order {
	return domain.NewDraft(7, domain.NewDate(2024, 5, 1), decimal.RequireFromString("44.9"), []domain.OrderLine{
		{ProductID: 3, Color: "", Quantity: 2, Name: "Camiseta"},
		{ProductID: 9, Color: "Azul", Quantity: 1},
	})
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("not a url", nil, session.NewStore(), nil)
	assert.Error(t, err)
}

func TestCreateOrderTranslatesAndReturnsAssignedOrder(t *testing.T) {
	var got domain.CreateOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/pedidos", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(headerCorrelationID))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.BackendOrder{
			ID: 42, UserID: 7, Date: "2024-05-01", Total: 44.9, Status: "pending",
			Lines: []domain.BackendLine{{OrderID: 42, ProductID: 3, Color: "Standard", Quantity: 2, Name: "Camiseta"}},
		})
	}))
	defer srv.Close()

	c := newClient(t, srv, loggedIn(t))
	order, err := c.CreateOrder(context.Background(), validDraft())
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(42), order.Lines[0].OrderID)

	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "2024-05-01", got.Date)
	assert.InDelta(t, 44.9, got.Total, 0.0001)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, domain.DefaultColor, got.Lines[0].Color)
	assert.Equal(t, "", got.Lines[1].Name)
}

func TestCreateOrderInvalidDraftMakesNoNetworkCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newClient(t, srv, loggedIn(t))
	draft := domain.NewDraft(0, domain.Today(), decimal.Zero, nil)

	_, err := c.CreateOrder(context.Background(), draft)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Problems, 3)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCallsWithoutSessionFailFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newClient(t, srv, session.NewStore())
	_, err := c.ListMyOrders(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.ListOrdersForUser(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.CreateOrder(context.Background(), validDraft())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUnauthorizedForcesLogoutOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid or expired token"}`))
	}))
	defer srv.Close()

	s := loggedIn(t)
	logouts := 0
	s.OnLogout(func() { logouts++ })
	c := newClient(t, srv, s)

	_, err := c.CreateOrder(context.Background(), validDraft())
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Your session has expired. Please log in again.", apiErr.Message)
	assert.Error(t, errors.Unwrap(err))

	assert.False(t, s.IsLoggedIn())
	assert.False(t, s.Logout())
	assert.Equal(t, 1, logouts)
}

func TestStatusTable(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   string
	}{
		{http.StatusForbidden, `{}`, "You do not have permission to perform this operation."},
		{http.StatusBadRequest, `{"message":"invalid order: total must be positive"}`, "invalid order: total must be positive"},
		{http.StatusBadRequest, `oops`, "Invalid data sent to the server."},
		{http.StatusNotFound, `{}`, "Resource not found. The order may not exist."},
		{http.StatusUnprocessableEntity, `{}`, "Validation error in the submitted data."},
		{http.StatusInternalServerError, `{}`, "Internal server error. Please try again later."},
		{http.StatusServiceUnavailable, `{"message":"maintenance"}`, "Server error: 503. maintenance"},
		{http.StatusConflict, `{}`, "Server error: 409."},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			s := loggedIn(t)
			c := newClient(t, srv, s)
			_, err := c.GetOrder(context.Background(), 5)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, "get order", apiErr.Op)
			assert.True(t, s.IsLoggedIn())
		})
	}
}

func TestConnectivityFailureMapsToStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newClient(t, srv, loggedIn(t))
	srv.Close()

	_, err := c.Summary(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, "Cannot reach the server. Is the backend running?", apiErr.Message)
	assert.NotNil(t, apiErr.Err)
}

func TestListOrdersAndLines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pedidos/user/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":10,"iduser":7,"fecha":"2024-01-05","total":12.5,"estado":"Delivered","lineas":[]},
			{"id":12,"iduser":7,"fecha":"2024-01-05T10:00:00Z","total":3,"lineas":[{"idprod":1,"color":"Rojo","cant":1,"nombre":"Lápiz"}]}
		]`))
	})
	mux.HandleFunc("/api/pedidos/10/lineas", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"idpedido":10,"idprod":4,"color":"Azul","cant":3,"nombre":"Goma"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, srv, loggedIn(t))
	orders, err := c.ListMyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, domain.StatusDelivered, orders[0].Status)
	assert.Equal(t, domain.StatusPending, orders[1].Status)
	assert.Equal(t, "2024-01-05", orders[1].Date.String())
	assert.Equal(t, int64(12), orders[1].Lines[0].OrderID)

	lines, err := c.GetOrderLines(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestLoginAndSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"token":"tok-9","usuario":{"id":7,"username":"ana","name":"Ana"}}`))
	})
	mux.HandleFunc("/api/pedidos/summary", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"totalOrders":2,"totalSpent":"30.50","byStatus":{"pending":2}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := session.NewStore()
	c := newClient(t, srv, s)
	u, token, err := c.Login(context.Background(), "ana", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
	require.NoError(t, s.Start(*u, token))

	sum, err := c.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalOrders)
	assert.True(t, sum.TotalSpent.Equal(decimal.RequireFromString("30.5")))
}

func TestStateTransitionsAndEmail(t *testing.T) {
	var emailed domain.DeliveryNoteEmailRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pedidos/5/cancel", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		_, _ = w.Write([]byte(`{"id":5,"iduser":7,"fecha":"2024-03-02","total":12.5,"estado":"cancelled","lineas":[]}`))
	})
	mux.HandleFunc("/api/pedidos/5/status", func(w http.ResponseWriter, r *http.Request) {
		var body domain.StatusUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, domain.StatusShipped, body.Status)
		_, _ = w.Write([]byte(`{"id":5,"iduser":7,"fecha":"2024-03-02","total":12.5,"estado":"shipped","lineas":[]}`))
	})
	mux.HandleFunc("/api/pedidos/enviar-albaran-email", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&emailed))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"queued"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, srv, loggedIn(t))
	o, err := c.CancelOrder(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	o, err = c.UpdateStatus(context.Background(), 5, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, o.Status)

	require.NoError(t, c.SendDeliveryNoteByEmail(context.Background(), *o, domain.User{ID: 7, Email: "ana@example.com"}, "JVBERg=="))
	assert.Equal(t, int64(5), emailed.Order.ID)
	assert.Equal(t, "JVBERg==", emailed.PDFBase64)
	assert.Equal(t, "ana@example.com", emailed.User.Email)
}
