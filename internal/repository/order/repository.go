package order

import (
	"context"

	"storefront-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that the repository uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Repository persists orders and their lines.
type Repository interface {
	// Create stores the header and every line in one transaction and returns the stored order.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	// GetByID returns the order with its lines.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// ListByUser returns every order of a user with lines, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
	SetStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error)
	Summary(ctx context.Context, userID int64) (domain.OrderSummary, error)
}
