package order

import (
	"context"
	"errors"
	"testing"

	"storefront-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
)

var orderCols = []string{"id", "user_id", "order_date", "total", "status"}
var lineCols = []string{"order_id", "product_id", "color", "quantity", "name"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateInsertsHeaderAndLinesInOneTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(7), "2024-05-01", "59.90", "pending").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(int64(42), int64(7), "2024-05-01", "59.90", "pending"))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(int64(42), int64(3), "Rojo", 2, "Camiseta").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(int64(42), int64(9), "Standard", 1, "Taza").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	draft := domain.NewDraft(7, domain.NewDate(2024, 5, 1), decimal.RequireFromString("59.90"), []domain.OrderLine{
		{ProductID: 3, Color: "Rojo", Quantity: 2, Name: "Camiseta"},
		{ProductID: 9, Color: "Standard", Quantity: 1, Name: "Taza"},
	})
	got, err := repo.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != 42 || got.Status != domain.StatusPending {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Lines) != 2 || got.Lines[0].OrderID != 42 || got.Lines[1].OrderID != 42 {
		t.Fatalf("lines not stamped with order id: %+v", got.Lines)
	}
	if !got.Total.Equal(decimal.RequireFromString("59.9")) {
		t.Fatalf("total = %s", got.Total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateRollsBackWhenLineInsertFails(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(7), "2024-05-01", "10.00", "pending").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(int64(43), int64(7), "2024-05-01", "10.00", "pending"))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(int64(43), int64(3), "Rojo", 1, "Camiseta").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	draft := domain.NewDraft(7, domain.NewDate(2024, 5, 1), decimal.NewFromInt(10), []domain.OrderLine{
		{ProductID: 3, Color: "Rojo", Quantity: 1, Name: "Camiseta"},
	})
	if _, err := repo.Create(context.Background(), draft); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIDLoadsLines(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(int64(5), int64(7), "2024-03-02", "12.50", "shipped"))
	mock.ExpectQuery("FROM order_lines").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(lineCols).AddRow(int64(5), int64(3), "Azul", 1, "Gorra"))

	got, err := repo.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusShipped || got.Date.String() != "2024-03-02" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Lines) != 1 || got.Lines[0].Name != "Gorra" {
		t.Fatalf("unexpected lines: %+v", got.Lines)
	}
}

func TestListByUserGroupsLines(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("FROM orders WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(12), int64(7), "2024-05-01", "20.00", "pending").
			AddRow(int64(10), int64(7), "2024-05-01", "15.00", "delivered").
			AddRow(int64(5), int64(7), "2024-03-02", "12.50", "shipped"))
	mock.ExpectQuery("JOIN orders").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow(int64(10), int64(1), "Standard", 3, "Lápiz").
			AddRow(int64(12), int64(2), "Rojo", 1, "Libreta").
			AddRow(int64(12), int64(4), "Azul", 2, "Goma"))

	orders, err := repo.ListByUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if len(orders[0].Lines) != 2 || len(orders[1].Lines) != 1 {
		t.Fatalf("lines not grouped: %+v", orders)
	}
	if orders[2].Lines == nil || len(orders[2].Lines) != 0 {
		t.Fatalf("order without lines should carry an empty slice, got %#v", orders[2].Lines)
	}
}

func TestListByUserEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("FROM orders WHERE user_id").
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows(orderCols))

	orders, err := repo.ListByUser(context.Background(), 8)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Fatalf("expected empty slice, got %#v", orders)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSummaryExcludesCancelledFromSpent(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("GROUP BY status").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count", "sum"}).
			AddRow("pending", 2, "35.00").
			AddRow("cancelled", 1, "9.99").
			AddRow("delivered", 1, "12.50"))

	s, err := repo.Summary(context.Background(), 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalOrders != 4 {
		t.Fatalf("total orders = %d", s.TotalOrders)
	}
	if !s.TotalSpent.Equal(decimal.RequireFromString("47.50")) {
		t.Fatalf("total spent = %s", s.TotalSpent)
	}
	if s.ByStatus[domain.StatusCancelled] != 1 || s.ByStatus[domain.StatusPending] != 2 {
		t.Fatalf("by status = %+v", s.ByStatus)
	}
}

func TestSetStatusMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery("UPDATE orders SET status").
		WithArgs(int64(3), "cancelled").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetStatus(context.Background(), 3, domain.StatusCancelled)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
